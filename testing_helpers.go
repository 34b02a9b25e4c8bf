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
	"time"

	"github.com/ZaparooProject/go-uhf/internal/frame"
)

// MockTransport is an in-memory Transport for tests. Writes are recorded
// and answered from scripted responses keyed by command code, delivered
// to the receiver callback the same way a serial port would deliver read
// chunks.
type MockTransport struct {
	receiver  func(chunk []byte)
	responses map[byte][][]byte
	queued    map[byte][][][]byte
	errors    map[byte]error
	calls     map[byte]int
	writes    [][]byte
	delay     time.Duration
	mu        sync.Mutex
	echo      bool
	connected bool
}

// NewMockTransport creates a connected mock transport with no scripted
// responses.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		responses: make(map[byte][][]byte),
		queued:    make(map[byte][][][]byte),
		errors:    make(map[byte]error),
		calls:     make(map[byte]int),
		connected: true,
	}
}

// SetResponse scripts the chunks delivered after every write of the given
// command code. Passing multiple chunks simulates a device that answers in
// several reads, for example an echo followed by the real response.
// Calling SetResponse again replaces the previous script.
func (m *MockTransport) SetResponse(cmd byte, chunks ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	script := make([][]byte, 0, len(chunks))
	for _, c := range chunks {
		script = append(script, append([]byte(nil), c...))
	}
	m.responses[cmd] = script
}

// QueueResponse scripts chunks for a single write of the given command
// code. Queued scripts are consumed in order before the persistent
// SetResponse script applies. Queueing zero chunks makes one write go
// unanswered, which is how timeout and retry paths are exercised.
func (m *MockTransport) QueueResponse(cmd byte, chunks ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	script := make([][]byte, 0, len(chunks))
	for _, c := range chunks {
		script = append(script, append([]byte(nil), c...))
	}
	m.queued[cmd] = append(m.queued[cmd], script)
}

// SetError makes every write of the given command code fail with err
// instead of being delivered.
func (m *MockTransport) SetError(cmd byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[cmd] = err
}

// SetDelay delays response delivery. With a non-zero delay Write returns
// immediately and the scripted chunks arrive from a separate goroutine,
// mimicking real serial latency.
func (m *MockTransport) SetDelay(delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = delay
}

// SetEcho makes the mock echo every written frame back to the receiver
// before any scripted response, the way ribbon-cabled readers do.
func (m *MockTransport) SetEcho(echo bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.echo = echo
}

// SetConnected overrides the connected state reported by IsConnected.
func (m *MockTransport) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
}

// GetCallCount returns how many frames with the given command code have
// been written.
func (m *MockTransport) GetCallCount(cmd byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[cmd]
}

// WriteCount returns the total number of Write calls.
func (m *MockTransport) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

// Writes returns copies of every frame written so far, in order.
func (m *MockTransport) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, 0, len(m.writes))
	for _, w := range m.writes {
		out = append(out, append([]byte(nil), w...))
	}
	return out
}

// WrittenCommands returns the command code of every written frame, in
// order. Convenient for asserting operation sequencing.
func (m *MockTransport) WrittenCommands() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, 0, len(m.writes))
	for _, w := range m.writes {
		if len(w) > 2 {
			out = append(out, w[2])
		}
	}
	return out
}

// Inject delivers raw bytes to the receiver as if the device had sent
// them unsolicited. Used to simulate tag notices during polling.
func (m *MockTransport) Inject(chunks ...[]byte) {
	m.mu.Lock()
	receiver := m.receiver
	m.mu.Unlock()
	if receiver == nil {
		return
	}
	for _, c := range chunks {
		receiver(append([]byte(nil), c...))
	}
}

// Write records the frame and delivers any scripted response for its
// command code.
func (m *MockTransport) Write(data []byte) error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return ErrNotConnected
	}
	raw := append([]byte(nil), data...)
	m.writes = append(m.writes, raw)

	var cmd byte
	if len(data) > 2 {
		cmd = data[2]
	}
	m.calls[cmd]++

	if err := m.errors[cmd]; err != nil {
		m.mu.Unlock()
		return err
	}

	var script [][]byte
	if pending := m.queued[cmd]; len(pending) > 0 {
		script = pending[0]
		m.queued[cmd] = pending[1:]
	} else {
		script = m.responses[cmd]
	}
	if m.echo {
		script = append([][]byte{raw}, script...)
	}
	receiver := m.receiver
	delay := m.delay
	m.mu.Unlock()

	// Deliver outside the lock: the receiver callback takes the device
	// lock and may call back into the transport.
	if receiver == nil || len(script) == 0 {
		return nil
	}
	if delay > 0 {
		go func() {
			time.Sleep(delay)
			for _, chunk := range script {
				receiver(chunk)
			}
		}()
		return nil
	}
	for _, chunk := range script {
		receiver(chunk)
	}
	return nil
}

// SetReceiver registers the callback invoked with response chunks.
func (m *MockTransport) SetReceiver(fn func(chunk []byte)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receiver = fn
}

// Close marks the transport as disconnected.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.receiver = nil
	return nil
}

// IsConnected reports whether the mock is still connected.
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Type returns TransportMock.
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// EchoFrame returns the exact bytes a reader would echo for the given
// command, which is simply the command frame itself.
func EchoFrame(cmd byte, params []byte) []byte {
	return frame.Build(cmd, params)
}
