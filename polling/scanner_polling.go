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
)

// startScanning runs the main monitoring loop using the underlying Monitor
func (s *Scanner) startScanning(ctx context.Context) error {
	monitorConfig := &Config{
		RemovalTimeout: s.config.RemovalTimeout,
		SweepInterval:  s.config.SweepInterval,
	}

	s.monitor = NewMonitor(s.device, monitorConfig)

	// Set up event handlers to integrate with Scanner callbacks
	s.setupEventHandlers()

	// Start the underlying monitor
	return s.monitor.Start(ctx)
}

// setupEventHandlers configures the monitor callbacks to integrate with
// Scanner functionality
func (s *Scanner) setupEventHandlers() {
	s.monitor.OnTagDetected = func(tag *TagState) {
		// Process any pending writes first, this is the key coordination point
		s.processPendingWrites(tag)

		if s.OnTagDetected != nil {
			s.OnTagDetected(tag)
		}
	}

	s.monitor.OnTagRemoved = func(tag *TagState) {
		if s.OnTagRemoved != nil {
			s.OnTagRemoved(tag)
		}
	}
}
