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
	"context"
	"testing"
	"time"

	testutil "github.com/ZaparooProject/go-uhf/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTagNotice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		params   []byte
		wantEPC  []byte
		wantPC   uint16
		wantRSSI int8
		wantOK   bool
	}{
		{
			name:     "EPC96Standard",
			params:   append([]byte{0xC9, 0x30, 0x00}, testutil.TestEPC...),
			wantOK:   true,
			wantEPC:  testutil.TestEPC,
			wantPC:   0x3000,
			wantRSSI: -55,
		},
		{
			name:     "PCClaimsMoreThanPayloadHolds",
			params:   []byte{0xC9, 0x30, 0x00, 0x55, 0x66},
			wantOK:   true,
			wantEPC:  []byte{0x55, 0x66},
			wantPC:   0x3000,
			wantRSSI: -55,
		},
		{
			name:     "PCSelectsPrefixOfPayload",
			params:   append([]byte{0xC9, 0x20, 0x00}, testutil.TestEPC...),
			wantOK:   true,
			wantEPC:  testutil.TestEPC[:8],
			wantPC:   0x2000,
			wantRSSI: -55,
		},
		{
			name:     "ZeroPCTakesEverything",
			params:   []byte{0xD3, 0x00, 0x00, 0xAA, 0xBB, 0xCC},
			wantOK:   true,
			wantEPC:  []byte{0xAA, 0xBB, 0xCC},
			wantPC:   0x0000,
			wantRSSI: -45,
		},
		{
			name:     "PositiveRSSI",
			params:   []byte{0x1A, 0x08, 0x00, 0x11, 0x22},
			wantOK:   true,
			wantEPC:  []byte{0x11, 0x22},
			wantPC:   0x0800,
			wantRSSI: 26,
		},
		{
			name:   "TooShortForHeader",
			params: []byte{0xC9, 0x30},
			wantOK: false,
		},
		{
			name:   "Empty",
			params: nil,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, ok := decodeTagNotice(tt.params)
			if !tt.wantOK {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantEPC, result.EPC)
			assert.Equal(t, tt.wantPC, result.PC)
			assert.Equal(t, tt.wantRSSI, result.RSSI)
		})
	}
}

func TestTagPollResult_EPCHex(t *testing.T) {
	t.Parallel()

	result := TagPollResult{EPC: testutil.TestEPC}
	assert.Equal(t, "E2000017220B014415805BDC", result.EPCHex())

	assert.Equal(t, "", TagPollResult{}.EPCHex())
}

// The exact bytes a real module emits for a sighting, end to end through
// the receive path.
func TestTagNoticeWireFormat(t *testing.T) {
	t.Parallel()

	device, mock := connectedDevice(t)
	sub := device.Subscribe()
	defer sub.Close()

	mock.Inject([]byte{0xBB, 0x02, 0x27, 0x00, 0x05, 0x1A, 0x30, 0x00, 0x55, 0x66, 0x33, 0x7E})

	select {
	case tag := <-sub.Events():
		assert.Equal(t, []byte{0x55, 0x66}, tag.EPC)
		assert.Equal(t, uint16(0x3000), tag.PC)
		assert.Equal(t, int8(26), tag.RSSI)
	case <-time.After(time.Second):
		t.Fatal("notice did not reach subscriber")
	}
}

func TestStartPolling(t *testing.T) {
	t.Parallel()

	t.Run("FireAndForget", func(t *testing.T) {
		t.Parallel()

		device, mock := connectedDevice(t)
		require.NoError(t, device.StartPolling())
		assert.True(t, device.Polling())
		assert.Equal(t, 1, mock.GetCallCount(testutil.CmdMultiPoll))
	})

	t.Run("AlreadyPollingIsNoOp", func(t *testing.T) {
		t.Parallel()

		device, mock := connectedDevice(t)
		require.NoError(t, device.StartPolling())
		require.NoError(t, device.StartPolling())
		assert.Equal(t, 1, mock.GetCallCount(testutil.CmdMultiPoll))
	})

	t.Run("NotConnected", func(t *testing.T) {
		t.Parallel()

		device, err := New(NewMockTransport())
		require.NoError(t, err)
		assert.ErrorIs(t, device.StartPolling(), ErrNotConnected)
	})

	t.Run("AckMode_Confirmed", func(t *testing.T) {
		t.Parallel()

		device, mock := connectedDevice(t, WithPollStartAck())
		mock.SetResponse(testutil.CmdMultiPoll,
			testutil.BuildStatusResponse(testutil.CmdMultiPoll, testutil.StatusOK))

		require.NoError(t, device.StartPolling())
		assert.True(t, device.Polling())
	})

	t.Run("AckMode_DeviceError", func(t *testing.T) {
		t.Parallel()

		device, mock := connectedDevice(t, WithPollStartAck())
		mock.SetResponse(testutil.CmdMultiPoll,
			testutil.BuildStatusResponse(testutil.CmdMultiPoll, testutil.StatusUnsupported))

		err := device.StartPolling()
		require.Error(t, err)
		var devErr *DeviceError
		require.ErrorAs(t, err, &devErr)
		assert.Equal(t, testutil.StatusUnsupported, devErr.Code)
		assert.False(t, device.Polling())
	})

	t.Run("AckMode_Timeout", func(t *testing.T) {
		t.Parallel()

		device, _ := connectedDevice(t, WithPollStartAck(), WithTimeout(50*time.Millisecond))

		err := device.StartPolling()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTimeout)
		assert.False(t, device.Polling())
	})
}

func TestStopPolling(t *testing.T) {
	t.Parallel()

	t.Run("Acknowledged", func(t *testing.T) {
		t.Parallel()

		device, mock := connectedDevice(t)
		mock.SetResponse(testutil.CmdStopMultiPoll,
			testutil.BuildStatusResponse(testutil.CmdStopMultiPoll, testutil.StatusOK))

		require.NoError(t, device.StartPolling())
		require.NoError(t, device.StopPolling())
		assert.False(t, device.Polling())
		assert.Equal(t, 1, mock.GetCallCount(testutil.CmdStopMultiPoll))
	})

	t.Run("UnacknowledgedIsNotAnError", func(t *testing.T) {
		t.Parallel()

		device, _ := connectedDevice(t, WithTimeout(50*time.Millisecond))
		require.NoError(t, device.StartPolling())

		require.NoError(t, device.StopPolling())
		assert.False(t, device.Polling())
	})

	t.Run("DeviceErrorSurfaces", func(t *testing.T) {
		t.Parallel()

		device, mock := connectedDevice(t)
		mock.SetResponse(testutil.CmdStopMultiPoll,
			testutil.BuildStatusResponse(testutil.CmdStopMultiPoll, testutil.StatusUnsupported))

		require.NoError(t, device.StartPolling())
		err := device.StopPolling()
		require.Error(t, err)

		// Whatever the module said, the flag drops so tag operations are
		// not wedged behind a stuck inventory.
		assert.False(t, device.Polling())
	})

	t.Run("NotConnected", func(t *testing.T) {
		t.Parallel()

		device, err := New(NewMockTransport())
		require.NoError(t, err)
		assert.ErrorIs(t, device.StopPolling(), ErrNotConnected)
	})
}

func TestSinglePoll(t *testing.T) {
	t.Parallel()

	t.Run("GathersNoticesInWindow", func(t *testing.T) {
		t.Parallel()

		device, mock := connectedDevice(t, WithPollWindow(150*time.Millisecond))
		mock.SetResponse(testutil.CmdSinglePoll,
			testutil.BuildSinglePollNotice(-50, testutil.PCForEPC(testutil.TestEPC), testutil.TestEPC),
			testutil.BuildSinglePollNotice(-62, testutil.PCForEPC(testutil.TestEPCAlt), testutil.TestEPCAlt))

		results, err := device.SinglePoll()
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, testutil.TestEPC, results[0].EPC)
		assert.Equal(t, int8(-50), results[0].RSSI)
		assert.Equal(t, testutil.TestEPCAlt, results[1].EPC)
		assert.Equal(t, int8(-62), results[1].RSSI)
	})

	t.Run("EmptyField", func(t *testing.T) {
		t.Parallel()

		device, _ := connectedDevice(t, WithPollWindow(50*time.Millisecond))

		results, err := device.SinglePoll()
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("ContextEndsWindowEarly", func(t *testing.T) {
		t.Parallel()

		device, _ := connectedDevice(t, WithPollWindow(10*time.Second))
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := device.SinglePollContext(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("NotConnected", func(t *testing.T) {
		t.Parallel()

		device, err := New(NewMockTransport())
		require.NoError(t, err)
		_, err = device.SinglePoll()
		assert.ErrorIs(t, err, ErrNotConnected)
	})
}

func TestSubscribe(t *testing.T) {
	t.Parallel()

	t.Run("BroadcastToAllSubscribers", func(t *testing.T) {
		t.Parallel()

		device, mock := connectedDevice(t)
		first := device.Subscribe()
		defer first.Close()
		second := device.Subscribe()
		defer second.Close()

		mock.Inject(testutil.BuildTagNotice(-58, testutil.PCForEPC(testutil.TestEPC), testutil.TestEPC))

		for _, sub := range []*PollSubscription{first, second} {
			select {
			case tag := <-sub.Events():
				assert.Equal(t, testutil.TestEPC, tag.EPC)
			case <-time.After(time.Second):
				t.Fatal("subscriber missed broadcast")
			}
		}
	})

	t.Run("SlowSubscriberLosesSightingsNotTheDevice", func(t *testing.T) {
		t.Parallel()

		device, mock := connectedDevice(t)
		sub := device.Subscribe()
		defer sub.Close()

		notice := testutil.BuildTagNotice(-58, testutil.PCForEPC(testutil.TestEPC), testutil.TestEPC)
		for i := 0; i < pollSubscriptionBuffer+4; i++ {
			mock.Inject(notice)
		}

		received := 0
		for {
			select {
			case <-sub.Events():
				received++
				continue
			default:
			}
			break
		}
		assert.Equal(t, pollSubscriptionBuffer, received)
	})

	t.Run("CloseIsIdempotent", func(t *testing.T) {
		t.Parallel()

		device, _ := connectedDevice(t)
		sub := device.Subscribe()
		sub.Close()
		sub.Close()

		_, open := <-sub.Events()
		assert.False(t, open)
	})

	t.Run("ClosedSubscriberGetsNothing", func(t *testing.T) {
		t.Parallel()

		device, mock := connectedDevice(t)
		sub := device.Subscribe()
		sub.Close()

		mock.Inject(testutil.BuildTagNotice(-58, testutil.PCForEPC(testutil.TestEPC), testutil.TestEPC))

		tag, open := <-sub.Events()
		assert.False(t, open)
		assert.Empty(t, tag.EPC)
	})
}
