//go:build integration

// go-uhf
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-uhf.
//
// go-uhf is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-uhf is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-uhf; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package uhf

import (
	"sync"
	"testing"
	"time"

	testutil "github.com/ZaparooProject/go-uhf/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// virtualTransport puts a VirtualReader behind the Transport interface, so
// a Device talks the full wire protocol against a simulated module.
type virtualTransport struct {
	reader   *testutil.VirtualReader
	receiver func(chunk []byte)
	mu       sync.Mutex
	closed   bool
}

func newVirtualTransport(reader *testutil.VirtualReader) *virtualTransport {
	return &virtualTransport{reader: reader}
}

func (v *virtualTransport) Write(p []byte) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrNotConnected
	}
	receiver := v.receiver
	v.mu.Unlock()

	chunks := v.reader.HandleFrame(p)
	if receiver == nil {
		return nil
	}
	for _, chunk := range chunks {
		receiver(chunk)
	}
	return nil
}

func (v *virtualTransport) SetReceiver(fn func(chunk []byte)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.receiver = fn
}

func (v *virtualTransport) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.receiver = nil
	return nil
}

func (v *virtualTransport) IsConnected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.closed
}

func (*virtualTransport) Type() TransportType {
	return TransportMock
}

func virtualDevice(t *testing.T, reader *testutil.VirtualReader, opts ...Option) *Device {
	t.Helper()
	device, err := New(newVirtualTransport(reader), opts...)
	require.NoError(t, err)
	require.NoError(t, device.Connect())
	return device
}

func TestIntegration_ReaderSetup(t *testing.T) {
	t.Parallel()

	reader := testutil.NewVirtualReader(testutil.NewVirtualTag(testutil.TestEPC))
	device := virtualDevice(t, reader)

	identity, err := device.GetFirmwareIdentity()
	require.NoError(t, err)
	assert.Equal(t, "UHF RFID READER V2.3", identity)

	power, err := device.GetRFPower()
	require.NoError(t, err)
	assert.Equal(t, 26, power)

	require.NoError(t, device.SetRFPower(20))
	power, err = device.GetRFPower()
	require.NoError(t, err)
	assert.Equal(t, 20, power)
}

func TestIntegration_SinglePoll(t *testing.T) {
	t.Parallel()

	t.Run("TagsInField", func(t *testing.T) {
		t.Parallel()

		first := testutil.NewVirtualTag(testutil.TestEPC)
		second := testutil.NewVirtualTag(testutil.TestEPCAlt)
		device := virtualDevice(t, testutil.NewVirtualReader(first, second),
			WithPollWindow(100*time.Millisecond))

		results, err := device.SinglePoll()
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, testutil.TestEPC, results[0].EPC)
		assert.Equal(t, testutil.TestEPCAlt, results[1].EPC)
	})

	t.Run("EmptyField", func(t *testing.T) {
		t.Parallel()

		device := virtualDevice(t, testutil.NewVirtualReader(),
			WithPollWindow(50*time.Millisecond))

		results, err := device.SinglePoll()
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("RemovedTagNotSighted", func(t *testing.T) {
		t.Parallel()

		tag := testutil.NewVirtualTag(testutil.TestEPC)
		device := virtualDevice(t, testutil.NewVirtualReader(tag),
			WithPollWindow(50*time.Millisecond))

		tag.Remove()
		results, err := device.SinglePoll()
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestIntegration_PollingLifecycle(t *testing.T) {
	t.Parallel()

	tag := testutil.NewVirtualTag(testutil.TestEPC)
	device := virtualDevice(t, testutil.NewVirtualReader(tag))

	sub := device.Subscribe()
	defer sub.Close()

	require.NoError(t, device.StartPolling())
	assert.True(t, device.Polling())

	select {
	case sighting := <-sub.Events():
		assert.Equal(t, testutil.TestEPC, sighting.EPC)
		assert.Equal(t, int8(-55), sighting.RSSI)
	case <-time.After(time.Second):
		t.Fatal("no sighting while polling")
	}

	require.NoError(t, device.StopPolling())
	assert.False(t, device.Polling())
}

func TestIntegration_RewriteAndLock(t *testing.T) {
	t.Parallel()

	tag := testutil.NewVirtualTag(testutil.TestEPC)
	device := virtualDevice(t, testutil.NewVirtualReader(tag))

	// Rewrite the EPC and confirm the tag now answers to the new one.
	result, err := device.WriteEPC(testutil.TestEPCAlt)
	require.NoError(t, err)
	require.True(t, result.Success(), result.Message())

	found, err := device.VerifyEPC(testutil.TestEPCAlt, time.Second)
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, device.Polling())

	// Lock with the factory password, then fail a write under the wrong
	// password.
	lock, err := device.LockTag([]byte{0x31, 0x32, 0x33, 0x34})
	require.NoError(t, err)
	require.True(t, lock.Success(), lock.Message())

	require.NoError(t, device.SetAccessPassword([]byte{0xDE, 0xAD, 0xBE, 0xEF}))
	result, err = device.WriteEPC(testutil.TestEPC)
	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.Equal(t, OpDeviceError, result.Status)
	assert.Equal(t, testutil.StatusAccessDenied, result.Code)
}

func TestIntegration_WriteWhilePolling(t *testing.T) {
	t.Parallel()

	tag := testutil.NewVirtualTag(testutil.TestEPC)
	device := virtualDevice(t, testutil.NewVirtualReader(tag))

	require.NoError(t, device.StartPolling())

	result, err := device.WriteEPC(testutil.TestEPCAlt)
	require.NoError(t, err)
	require.True(t, result.Success(), result.Message())
	assert.True(t, device.Polling())

	// Fresh inventory rounds sight the rewritten EPC.
	require.NoError(t, device.StopPolling())
	found, err := device.VerifyEPC(testutil.TestEPCAlt, time.Second)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestIntegration_EchoingReader(t *testing.T) {
	t.Parallel()

	tag := testutil.NewVirtualTag(testutil.TestEPC)
	reader := testutil.NewVirtualReader(tag)
	reader.EchoCommands = true
	device := virtualDevice(t, reader, WithEchoGrace(100*time.Millisecond))

	// Real responses still win over the echoes that precede them.
	identity, err := device.GetFirmwareIdentity()
	require.NoError(t, err)
	assert.Equal(t, "UHF RFID READER V2.3", identity)

	result, err := device.WriteEPC(testutil.TestEPCAlt)
	require.NoError(t, err)
	assert.True(t, result.Success(), result.Message())
}
