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

package polling

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	uhf "github.com/ZaparooProject/go-uhf"
)

// Config holds configuration for the Monitor
type Config struct {
	// RemovalTimeout is how long a tag may go unseen before it is
	// considered removed from the field
	RemovalTimeout time.Duration
	// SweepInterval is how often the field is checked for expired tags
	SweepInterval time.Duration
}

// DefaultConfig returns sensible monitor defaults
func DefaultConfig() *Config {
	return &Config{
		RemovalTimeout: 2 * time.Second,
		SweepInterval:  250 * time.Millisecond,
	}
}

// stopGrace bounds how long shutdown waits for the module to acknowledge a
// stop command after the caller's context is already done.
const stopGrace = 2 * time.Second

// MonitorMetrics tracks operational counters for a Monitor
type MonitorMetrics struct {
	Sightings    int64 // Total tag sightings processed
	TagsDetected int64 // Tags that newly entered the field
	TagsRemoved  int64 // Tags that expired out of the field
}

// Monitor consumes the reader's continuous inventory stream and tracks
// which tags are in the field, firing callbacks on arrival and removal.
type Monitor struct {
	device *uhf.Device
	config *Config
	field  *FieldState

	// OnTagDetected fires when an EPC newly enters the field
	OnTagDetected func(tag *TagState)
	// OnTagSeen fires on every repeat sighting of a known tag
	OnTagSeen func(tag *TagState)
	// OnTagRemoved fires when a tag has not been sighted for RemovalTimeout
	OnTagRemoved func(tag *TagState)

	fieldMu    sync.Mutex
	writeMutex sync.Mutex
	isPaused   atomic.Bool

	sightings    int64
	tagsDetected int64
	tagsRemoved  int64
}

// NewMonitor creates a new tag monitor
func NewMonitor(device *uhf.Device, config *Config) *Monitor {
	if config == nil {
		config = DefaultConfig()
	}
	return &Monitor{
		device: device,
		config: config,
		field:  NewFieldState(),
	}
}

// Start begins continuous monitoring and blocks until ctx is done or the
// device goes away. The reader is put in continuous inventory mode for the
// duration and stopped again on the way out.
func (m *Monitor) Start(ctx context.Context) error {
	sub := m.device.Subscribe()
	defer sub.Close()

	if err := m.device.StartPollingContext(ctx); err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopGrace)
		defer cancel()
		_ = m.device.StopPollingContext(stopCtx)
	}()

	sweep := time.NewTicker(m.config.SweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case result, ok := <-sub.Events():
			if !ok {
				return fmt.Errorf("tag stream closed: %w", uhf.ErrNotConnected)
			}
			if m.isPaused.Load() {
				continue
			}
			m.observe(result)
		case <-sweep.C:
			if m.isPaused.Load() {
				continue
			}
			m.sweepExpired()
		}
	}
}

// Pause stops sighting processing and removal sweeps. Idempotent.
func (m *Monitor) Pause() {
	m.isPaused.Store(true)
}

// Resume restarts sighting processing. The pause gap does not count toward
// removal timeouts. Idempotent.
func (m *Monitor) Resume() {
	if m.isPaused.CompareAndSwap(true, false) {
		m.fieldMu.Lock()
		m.field.Touch(time.Now())
		m.fieldMu.Unlock()
	}
}

// WriteToTag runs a tag operation with monitoring paused, so sightings from
// before the write cannot expire mid-operation and the operation does not
// race the inventory stream. Writes are serialized.
func (m *Monitor) WriteToTag(
	ctx context.Context,
	tag *TagState,
	operation func(ctx context.Context, device *uhf.Device, tag *TagState) error,
) error {
	m.writeMutex.Lock()
	defer m.writeMutex.Unlock()

	m.Pause()
	defer m.Resume()

	return operation(ctx, m.device, tag)
}

// Snapshot returns the tags currently believed to be in the field, sorted
// by EPC.
func (m *Monitor) Snapshot() []TagState {
	m.fieldMu.Lock()
	defer m.fieldMu.Unlock()
	return m.field.Snapshot()
}

// GetMetrics returns current operational counters
func (m *Monitor) GetMetrics() MonitorMetrics {
	return MonitorMetrics{
		Sightings:    atomic.LoadInt64(&m.sightings),
		TagsDetected: atomic.LoadInt64(&m.tagsDetected),
		TagsRemoved:  atomic.LoadInt64(&m.tagsRemoved),
	}
}

// GetDevice returns the underlying UHF device
func (m *Monitor) GetDevice() *uhf.Device {
	return m.device
}

// Close cleans up the monitor resources
func (m *Monitor) Close() error {
	if err := m.device.Close(); err != nil {
		return fmt.Errorf("failed to close device: %w", err)
	}
	return nil
}

// observe records one sighting and fires the matching callback
func (m *Monitor) observe(result uhf.TagPollResult) {
	m.fieldMu.Lock()
	tag, isNew := m.field.Observe(result, time.Now())
	m.fieldMu.Unlock()

	atomic.AddInt64(&m.sightings, 1)
	if isNew {
		atomic.AddInt64(&m.tagsDetected, 1)
		if m.OnTagDetected != nil {
			m.OnTagDetected(&tag)
		}
		return
	}
	if m.OnTagSeen != nil {
		m.OnTagSeen(&tag)
	}
}

// sweepExpired expires tags that have gone unseen past the removal timeout
func (m *Monitor) sweepExpired() {
	cutoff := time.Now().Add(-m.config.RemovalTimeout)
	m.fieldMu.Lock()
	expired := m.field.Expired(cutoff)
	m.fieldMu.Unlock()

	for i := range expired {
		atomic.AddInt64(&m.tagsRemoved, 1)
		if m.OnTagRemoved != nil {
			m.OnTagRemoved(&expired[i])
		}
	}
}
