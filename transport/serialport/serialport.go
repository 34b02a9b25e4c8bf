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

// Package serialport provides the serial transport for UHF reader modules
package serialport

import (
	"fmt"
	"sync"
	"time"

	uhf "github.com/ZaparooProject/go-uhf"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the rate UHF reader modules ship with
	DefaultBaudRate = 115200

	// readChunkSize bounds a single read from the port
	readChunkSize = 256

	// readPollInterval is the port read timeout. It bounds how long the
	// read pump can block, so Close never waits longer than this.
	readPollInterval = 100 * time.Millisecond
)

// Option configures a Transport before the port is opened
type Option func(*Transport)

// WithBaudRate overrides the default baud rate
func WithBaudRate(baud int) Option {
	return func(t *Transport) {
		t.baudRate = baud
	}
}

// Transport implements the uhf.Transport interface over a serial port. A
// background goroutine pumps bytes off the port and hands each chunk to the
// registered receiver, preserving whatever chunking the OS delivers.
type Transport struct {
	port     serial.Port
	receiver func(chunk []byte)
	done     chan struct{}
	portName string
	baudRate int
	mu       sync.Mutex
	closed   bool
}

// New opens the serial port and starts the read pump
func New(portName string, opts ...Option) (*Transport, error) {
	t := &Transport{
		portName: portName,
		baudRate: DefaultBaudRate,
	}
	for _, opt := range opts {
		opt(t)
	}

	mode := &serial.Mode{
		BaudRate: t.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(readPollInterval); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}

	// Drop any boot chatter the OS buffered before we got here
	_ = port.ResetInputBuffer()

	t.port = port
	t.done = make(chan struct{})
	go t.readPump()

	return t, nil
}

// readPump reads chunks off the port until the transport closes or the port
// fails. Receiver callbacks run on this goroutine, outside the transport
// lock, so they are free to call back into the transport.
func (t *Transport) readPump() {
	defer close(t.done)
	buf := make([]byte, readChunkSize)
	for {
		t.mu.Lock()
		closed := t.closed
		port := t.port
		t.mu.Unlock()
		if closed {
			return
		}

		n, err := port.Read(buf)
		if n > 0 {
			t.mu.Lock()
			receiver := t.receiver
			t.mu.Unlock()
			if receiver != nil {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				receiver(chunk)
			}
		}
		if err != nil {
			t.mu.Lock()
			wasClosed := t.closed
			t.closed = true
			t.mu.Unlock()
			if !wasClosed {
				log.Error().Err(err).Str("port", t.portName).
					Msg("serial read failed, closing transport")
			}
			return
		}
	}
}

// Write sends raw bytes to the module
func (t *Transport) Write(data []byte) error {
	t.mu.Lock()
	port := t.port
	closed := t.closed
	t.mu.Unlock()
	if closed || port == nil {
		return uhf.NewTransportError("Write", t.portName, uhf.ErrNotConnected, uhf.ErrorTypePermanent)
	}

	written := 0
	for written < len(data) {
		n, err := port.Write(data[written:])
		if err != nil {
			return uhf.NewTransportError("Write", t.portName, err, uhf.ErrorTypeTransient)
		}
		written += n
	}
	return nil
}

// SetReceiver registers the callback invoked with every chunk read off the
// port. Passing nil detaches the current receiver.
func (t *Transport) SetReceiver(fn func(chunk []byte)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.receiver = fn
}

// Close stops the read pump and closes the port
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	port := t.port
	t.receiver = nil
	t.mu.Unlock()

	var err error
	if port != nil {
		if cerr := port.Close(); cerr != nil {
			err = fmt.Errorf("failed to close serial port %s: %w", t.portName, cerr)
		}
	}
	if t.done != nil {
		<-t.done
	}
	return err
}

// IsConnected returns true while the port is open and the pump is running
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed && t.port != nil
}

// Type returns the transport type
func (t *Transport) Type() uhf.TransportType {
	return uhf.TransportSerial
}

// PortName returns the path of the underlying serial port
func (t *Transport) PortName() string {
	return t.portName
}

// ListPorts returns the serial ports present on the system
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	return ports, nil
}

// Ensure Transport implements uhf.Transport
var _ uhf.Transport = (*Transport)(nil)
