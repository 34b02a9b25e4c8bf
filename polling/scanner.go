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
	"errors"
	"sync"
	"sync/atomic"
	"time"

	uhf "github.com/ZaparooProject/go-uhf"
)

// Scanner provides a high-level interface for continuous UHF tag scanning
// with coordinated write operations. It wraps the lower-level Monitor to
// provide thread-safe, user-friendly scanning functionality.
type Scanner struct {
	device        *uhf.Device
	config        *ScanConfig
	monitor       *Monitor
	pendingWrite  atomic.Pointer[WriteRequest]
	cancelFunc    context.CancelFunc
	OnTagDetected func(tag *TagState)
	OnTagRemoved  func(tag *TagState)
	writeMutex    sync.Mutex
	stopMutex     sync.Mutex
	running       atomic.Bool
}

// ScanConfig holds configuration options for the Scanner
type ScanConfig struct {
	// RemovalTimeout is how long a tag may go unseen before removal fires
	RemovalTimeout time.Duration
	// SweepInterval is how often expired tags are swept
	SweepInterval time.Duration
	// WriteTimeout is the default wait for WriteToNextTag when the caller
	// passes no explicit timeout
	WriteTimeout time.Duration
}

// WriteRequest represents a pending write operation
type WriteRequest struct {
	operation func(ctx context.Context, device *uhf.Device, tag *TagState) error
	result    chan error
	ctx       context.Context
	createdAt time.Time
}

// Scanner-specific errors
var (
	ErrWriteAlreadyPending = errors.New("write operation already pending")
	ErrScannerNotRunning   = errors.New("scanner is not running")
	ErrScannerStopped      = errors.New("scanner was stopped")
	ErrVerifyFailed        = errors.New("rewritten EPC not seen in field")
)

// NewScanner creates a new scanner instance with the given device and configuration
func NewScanner(device *uhf.Device, config *ScanConfig) (*Scanner, error) {
	if device == nil {
		return nil, errors.New("device cannot be nil")
	}
	if config == nil {
		config = DefaultScanConfig()
	}

	return &Scanner{
		device: device,
		config: config,
	}, nil
}

// DefaultScanConfig returns sensible default configuration values
func DefaultScanConfig() *ScanConfig {
	return &ScanConfig{
		RemovalTimeout: 2 * time.Second,
		SweepInterval:  250 * time.Millisecond,
		WriteTimeout:   10 * time.Second,
	}
}

// Start begins continuous scanning (non-blocking)
// Returns an error if the scanner is already running
func (s *Scanner) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("scanner is already running")
	}

	scanCtx, cancel := context.WithCancel(ctx)
	s.stopMutex.Lock()
	s.cancelFunc = cancel
	s.stopMutex.Unlock()

	go func() {
		defer func() {
			s.running.Store(false)
			s.stopMutex.Lock()
			s.cancelFunc = nil
			s.stopMutex.Unlock()
		}()

		if err := s.startScanning(scanCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.failPendingWrite(err)
		}
	}()

	return nil
}

// Stop gracefully stops the scanner
// Blocks until the scanner has fully stopped
func (s *Scanner) Stop() error {
	if !s.running.Load() {
		return nil
	}

	s.stopMutex.Lock()
	cancelFunc := s.cancelFunc
	s.stopMutex.Unlock()

	if cancelFunc != nil {
		cancelFunc()
	}

	for s.running.Load() {
		time.Sleep(10 * time.Millisecond)
	}

	return nil
}

// IsRunning returns whether the scanner is currently active
func (s *Scanner) IsRunning() bool {
	return s.running.Load()
}

// HasPendingWrite returns true if a write operation is waiting
func (s *Scanner) HasPendingWrite() bool {
	return s.pendingWrite.Load() != nil
}

// Snapshot returns the tags currently believed to be in the field. Returns
// nil when the scanner is not running.
func (s *Scanner) Snapshot() []TagState {
	monitor := s.monitor
	if monitor == nil || !s.running.Load() {
		return nil
	}
	return monitor.Snapshot()
}
