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
	"fmt"
)

// Transport is the raw byte pipe to a UHF reader module. Implementations
// carry bytes in both directions and know nothing about frames; all framing,
// correlation and timeout logic lives in the Device.
//
// This can be implemented by serial backends, network bridges or test
// doubles.
type Transport interface {
	// Write submits raw bytes towards the module. Success means the bytes
	// were accepted for transmission, not that the module received them.
	Write(p []byte) error

	// SetReceiver registers the handler invoked for every inbound byte
	// chunk. Chunks arrive fragmented at arbitrary boundaries and may
	// contain partial frames, several frames, or garbage. Passing nil
	// removes the handler; chunks arriving with no handler are dropped.
	SetReceiver(fn func(chunk []byte))

	// Close closes the transport connection
	Close() error

	// IsConnected returns true if the transport is connected
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportSerial represents a serial port transport.
	TransportSerial TransportType = "serial"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// TransportWithRetry wraps a Transport with retry capabilities for writes.
// Inbound traffic is push-based and passes through untouched.
type TransportWithRetry struct {
	transport Transport
	config    *RetryConfig
}

// NewTransportWithRetry creates a new transport wrapper with retry logic
func NewTransportWithRetry(transport Transport, config *RetryConfig) *TransportWithRetry {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &TransportWithRetry{
		transport: transport,
		config:    config,
	}
}

// Write submits bytes with retry logic. Only errors classified as retryable
// are tried again.
func (t *TransportWithRetry) Write(p []byte) error {
	return RetryWithConfig(context.Background(), t.config, func() error {
		if err := t.transport.Write(p); err != nil {
			return &TransportError{
				Op:        "Write",
				Err:       err,
				Type:      GetErrorType(err),
				Retryable: IsRetryable(err),
			}
		}
		return nil
	})
}

// SetReceiver forwards receiver registration to the underlying transport.
func (t *TransportWithRetry) SetReceiver(fn func(chunk []byte)) {
	t.transport.SetReceiver(fn)
}

// Close closes the transport connection
func (t *TransportWithRetry) Close() error {
	if err := t.transport.Close(); err != nil {
		return fmt.Errorf("failed to close underlying transport: %w", err)
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *TransportWithRetry) IsConnected() bool {
	return t.transport.IsConnected()
}

// Type returns the transport type
func (t *TransportWithRetry) Type() TransportType {
	return t.transport.Type()
}

// SetRetryConfig updates the retry configuration
func (t *TransportWithRetry) SetRetryConfig(config *RetryConfig) {
	t.config = config
}
