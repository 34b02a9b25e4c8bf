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

// Command uhfdiag checks that a UHF reader module is wired up and
// answering: it lists plausible serial ports, probes the reader's identity
// and transmit power, samples the tag field, and can soak the reader in
// continuous inventory mode while reporting statistics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	uhf "github.com/ZaparooProject/go-uhf"
)

func main() {
	if run() != 0 {
		os.Exit(1)
	}
}

func run() int {
	// Parse command line flags
	device := flag.String("device", "", "Serial device path (default: best ranked candidate)")
	baud := flag.Int("baud", DefaultConfig().BaudRate, "Serial baud rate")
	quick := flag.Bool("quick", false, "Quick mode - probe only, skip the field sample")
	soak := flag.Bool("soak", false, "Soak mode - continuous inventory with statistics until interrupted")
	connectTimeoutFlag := flag.Duration("connect-timeout", 10*time.Second, "Reader command timeout")
	sampleWindowFlag := flag.Duration("sample-window", 3*time.Second, "How long the field sample runs")
	statsIntervalFlag := flag.Duration("stats-interval", 5*time.Second, "How often soak mode prints statistics")
	verboseFlag := flag.Bool("verbose", false, "Enable verbose output")
	debugFlag := flag.Bool("debug", false, "Enable protocol debug output")

	flag.Parse()

	if *debugFlag {
		uhf.SetDebugEnabled(true)
	}

	// Create configuration
	config := DefaultConfig()

	// Determine operating mode
	switch {
	case *quick:
		config.Mode = ModeQuick
	case *soak:
		config.Mode = ModeSoak
	default:
		config.Mode = ModeComprehensive
	}

	config.DevicePath = *device
	config.BaudRate = *baud
	config.ConnectTimeout = *connectTimeoutFlag
	config.SampleWindow = *sampleWindowFlag
	config.StatsInterval = *statsIntervalFlag
	config.Verbose = *verboseFlag

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		_, _ = fmt.Print("\nShutting down gracefully...\n")
		cancel()
	}()

	// Initialize components
	output := NewOutput(config.Verbose)
	probes := NewProbes(config, output)

	if err := runMode(ctx, config, output, probes); err != nil {
		output.Error("%v", err)
		return 1
	}
	return 0
}

func runMode(ctx context.Context, config *Config, output *Output, probes *Probes) error {
	candidates, err := probes.ListCandidates()
	if err != nil {
		return err
	}

	port, err := probes.ResolvePort(candidates)
	if err != nil {
		return err
	}

	device, err := probes.ProbeReader(port)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := device.Close(); closeErr != nil {
			output.Verbose("Warning: device close failed: %v", closeErr)
		}
	}()

	switch config.Mode {
	case ModeQuick:
		return nil
	case ModeSoak:
		return NewSoak(config, output).Run(ctx, device)
	case ModeComprehensive:
		return probes.SampleField(ctx, device)
	}
	return nil
}
