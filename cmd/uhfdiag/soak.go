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

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	uhf "github.com/ZaparooProject/go-uhf"
	"github.com/ZaparooProject/go-uhf/polling"
)

// Soak runs the reader in continuous inventory mode and reports field
// statistics, for burn-in and antenna placement testing.
type Soak struct {
	config *Config
	output *Output
}

// NewSoak creates a new soak test handler
func NewSoak(config *Config, output *Output) *Soak {
	return &Soak{
		config: config,
		output: output,
	}
}

// Run monitors the field until ctx is canceled, printing a statistics line
// at every stats interval and tag arrivals and removals as they happen.
func (s *Soak) Run(ctx context.Context, device *uhf.Device) error {
	_, _ = fmt.Println("\nSoak test running... (Ctrl+C to stop)")

	monitor := polling.NewMonitor(device, &polling.Config{
		RemovalTimeout: s.config.RemovalTimeout,
		SweepInterval:  250 * time.Millisecond,
	})

	monitor.OnTagDetected = func(tag *polling.TagState) {
		_, _ = fmt.Printf("TAG: %s entered field (RSSI %d dBm)\n", tag.EPC, tag.RSSI)
	}
	monitor.OnTagRemoved = func(tag *polling.TagState) {
		_, _ = fmt.Printf("TAG: %s left field after %d sighting(s)\n", tag.EPC, tag.SeenCount)
	}
	if s.config.Verbose {
		monitor.OnTagSeen = func(tag *polling.TagState) {
			s.output.Verbose("sighting: %s (RSSI %d dBm, count %d)", tag.EPC, tag.RSSI, tag.SeenCount)
		}
	}

	start := time.Now()
	statsDone := make(chan struct{})
	go func() {
		defer close(statsDone)
		ticker := time.NewTicker(s.config.StatsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.printStats(monitor, start)
			}
		}
	}()

	err := monitor.Start(ctx)
	<-statsDone

	s.printSummary(monitor, start)

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *Soak) printStats(monitor *polling.Monitor, start time.Time) {
	metrics := monitor.GetMetrics()
	inField := len(monitor.Snapshot())
	elapsed := time.Since(start).Round(time.Second)
	s.output.StatsLine(elapsed.String(), metrics.Sightings, metrics.TagsDetected, metrics.TagsRemoved, inField)
}

func (s *Soak) printSummary(monitor *polling.Monitor, start time.Time) {
	metrics := monitor.GetMetrics()
	elapsed := time.Since(start).Round(time.Second)
	_, _ = fmt.Printf("\nSoak summary after %s:\n", elapsed)
	_, _ = fmt.Printf("  total sightings: %d\n", metrics.Sightings)
	_, _ = fmt.Printf("  distinct arrivals: %d\n", metrics.TagsDetected)
	_, _ = fmt.Printf("  removals: %d\n", metrics.TagsRemoved)
	if elapsed > 0 {
		rate := float64(metrics.Sightings) / elapsed.Seconds()
		_, _ = fmt.Printf("  read rate: %.1f sightings/s\n", rate)
	}
	for _, tag := range monitor.Snapshot() {
		s.output.TagLine(tag.EPC, tag.RSSI, tag.SeenCount)
	}
}
