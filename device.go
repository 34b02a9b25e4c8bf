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
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/go-uhf/internal/frame"
)

// DeviceConfig contains configuration options for the Device
type DeviceConfig struct {
	// RetryConfig configures retry behavior for transport operations
	RetryConfig *RetryConfig
	// Timeout is the default timeout for command responses
	Timeout time.Duration
	// WriteTimeout is the timeout for slow tag operations such as EPC
	// writes and locks
	WriteTimeout time.Duration
	// EchoGrace is how long a command echo is held back waiting for a
	// proper response before the echo resolves the command itself
	EchoGrace time.Duration
	// PollWindow is how long a single poll gathers tag notices
	PollWindow time.Duration
	// VerifyTimeout is the default window for EPC verification
	VerifyTimeout time.Duration
	// TagOpRetries is how many extra attempts tag operations make after a
	// timeout; explicit device errors are never retried
	TagOpRetries int
	// PollStartAck waits for a start confirmation when polling begins
	// instead of firing and forgetting. Most firmware never confirms, so
	// this is off by default.
	PollStartAck bool
}

// DefaultDeviceConfig returns default device configuration
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		RetryConfig:   DefaultRetryConfig(),
		Timeout:       1 * time.Second,
		WriteTimeout:  2 * time.Second,
		EchoGrace:     500 * time.Millisecond,
		PollWindow:    500 * time.Millisecond,
		VerifyTimeout: 2 * time.Second,
		TagOpRetries:  2,
		PollStartAck:  false,
	}
}

// EnableLine controls the hardware enable input of a reader module, usually
// wired to a GPIO pin. Modules without an enable line do not need one.
type EnableLine interface {
	// Set drives the line; true powers the module up
	Set(enabled bool) error
	// Close releases the line
	Close() error
}

// Device represents a UHF RFID reader module behind a Transport.
//
// Thread Safety: Device is safe for concurrent use. Inbound traffic is
// processed under the same lock that guards command correlation and polling
// state, and at most one command is in flight at a time; a newer command
// cancels the pending one.
type Device struct {
	transport Transport
	config    *DeviceConfig
	enable    EnableLine

	mu             sync.Mutex
	reasm          *frame.Reassembler
	pending        *pendingRequest
	subs           map[*PollSubscription]struct{}
	accessPassword [AccessPasswordLength]byte
	connected      bool
	polling        bool
	moduleEnabled  bool
}

// New creates a new UHF device on the given transport. The transport must
// already be open; New does not touch it until Connect.
func New(transport Transport, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: transport is required", ErrInvalidParameter)
	}
	device := &Device{
		transport: transport,
		config:    DefaultDeviceConfig(),
		reasm:     frame.NewReassembler(),
		subs:      make(map[*PollSubscription]struct{}),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	return device, nil
}

// Connect attaches the device to its transport: the receive path is
// registered, the reassembly buffer cleared, and the enable line raised if
// one is configured. Connect is idempotent.
func (d *Device) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connected {
		return nil
	}
	if !d.transport.IsConnected() {
		return fmt.Errorf("%w: transport not ready", ErrNotConnected)
	}
	if d.enable != nil {
		if err := d.enable.Set(true); err != nil {
			return fmt.Errorf("raise enable line: %w", err)
		}
		d.moduleEnabled = true
	}
	d.reasm.Reset()
	d.transport.SetReceiver(d.handleChunk)
	d.connected = true
	debugf("device connected via %s transport", d.transport.Type())
	return nil
}

// Disconnect detaches the device from its transport without closing it. Any
// pending command resolves with ErrRequestCanceled, the polling flag and
// reassembly buffer are cleared, and the enable line is lowered. In-flight
// transport writes are not waited for.
func (d *Device) Disconnect() error {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return nil
	}
	if d.pending != nil {
		d.resolveLocked(d.pending, commandResult{err: ErrRequestCanceled})
	}
	d.polling = false
	d.connected = false
	d.moduleEnabled = false
	d.reasm.Reset()
	d.mu.Unlock()

	d.transport.SetReceiver(nil)
	if d.enable != nil {
		if err := d.enable.Set(false); err != nil {
			return fmt.Errorf("lower enable line: %w", err)
		}
	}
	return nil
}

// Close disconnects the device and closes the transport and enable line.
func (d *Device) Close() error {
	err := d.Disconnect()
	if d.enable != nil {
		if cerr := d.enable.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close enable line: %w", cerr)
		}
	}
	if cerr := d.transport.Close(); cerr != nil {
		return fmt.Errorf("failed to close transport: %w", cerr)
	}
	return err
}

// Connected reports whether Connect has succeeded and Disconnect has not
// been called since.
func (d *Device) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// Polling reports whether the module is believed to be in continuous
// inventory mode.
func (d *Device) Polling() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.polling
}

// ModuleEnabled reports the last commanded state of the enable line. It is
// always false when no enable line is configured.
func (d *Device) ModuleEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.moduleEnabled
}

// Transport returns the underlying transport
func (d *Device) Transport() Transport {
	return d.transport
}

// SetTimeout sets the default timeout for command responses
func (d *Device) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidParameter)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.config.Timeout = timeout
	return nil
}

// SetRetryConfig updates the retry configuration
func (d *Device) SetRetryConfig(config *RetryConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.config.RetryConfig = config
	if tr, ok := d.transport.(*TransportWithRetry); ok {
		tr.SetRetryConfig(config)
	}
}

// SetAccessPassword sets the Gen2 access password used by tag write and
// lock operations. The password must be exactly AccessPasswordLength bytes.
// The factory default is all zeroes.
func (d *Device) SetAccessPassword(password []byte) error {
	if len(password) != AccessPasswordLength {
		return fmt.Errorf("%w: access password must be %d bytes, got %d",
			ErrInvalidParameter, AccessPasswordLength, len(password))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(d.accessPassword[:], password)
	return nil
}

func (d *Device) currentAccessPassword() [AccessPasswordLength]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accessPassword
}

// handleChunk is the transport receiver. It runs on the transport's read
// goroutine and funnels every inbound chunk through the reassembler.
func (d *Device) handleChunk(chunk []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return
	}
	for _, f := range d.reasm.Feed(chunk) {
		for _, result := range d.handleFrameLocked(f) {
			d.publishLocked(result)
		}
	}
}
