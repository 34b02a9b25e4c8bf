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
	"sort"
	"time"

	uhf "github.com/ZaparooProject/go-uhf"
	"github.com/ZaparooProject/go-uhf/detection"
	"github.com/ZaparooProject/go-uhf/transport/serialport"
)

// Probes handles port discovery and reader connectivity checks
type Probes struct {
	config *Config
	output *Output
}

// NewProbes creates a new probes handler
func NewProbes(config *Config, output *Output) *Probes {
	return &Probes{
		config: config,
		output: output,
	}
}

// ListCandidates scans serial ports and prints every plausible reader port,
// most likely first. It returns the ranked candidates.
func (p *Probes) ListCandidates() ([]detection.Candidate, error) {
	p.output.Verbose("Scanning serial ports...")

	candidates, err := detection.List(detection.Options{})
	if err != nil {
		return nil, fmt.Errorf("port scan failed: %w", err)
	}

	if len(candidates) == 0 {
		_, _ = fmt.Println("No plausible reader ports found.")
		return nil, nil
	}

	_, _ = fmt.Printf("Found %d candidate port(s):\n", len(candidates))
	for i, candidate := range candidates {
		p.output.CandidateLine(i, candidate)
	}

	return candidates, nil
}

// ResolvePort returns the port to probe, preferring an explicit -device
// over the top ranked candidate.
func (p *Probes) ResolvePort(candidates []detection.Candidate) (string, error) {
	if p.config.DevicePath != "" {
		return p.config.DevicePath, nil
	}
	if len(candidates) == 0 {
		return "", errors.New("no reader port found, use -device to name one")
	}
	return candidates[0].Path, nil
}

// ProbeReader opens the port, connects and queries module identity and
// transmit power. The returned device is connected; the caller closes it.
func (p *Probes) ProbeReader(path string) (*uhf.Device, error) {
	p.output.ProbeHeader(path, p.config.BaudRate)

	transport, err := serialport.New(path, serialport.WithBaudRate(p.config.BaudRate))
	if err != nil {
		p.output.ProbeFailure()
		return nil, fmt.Errorf("failed to open serial transport: %w", err)
	}

	device, err := uhf.New(transport, uhf.WithTimeout(p.config.ConnectTimeout))
	if err != nil {
		_ = transport.Close()
		p.output.ProbeFailure()
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	if err := device.Connect(); err != nil {
		_ = transport.Close()
		p.output.ProbeFailure()
		return nil, fmt.Errorf("failed to connect to reader: %w", err)
	}

	identity, err := device.GetFirmwareIdentity()
	if err != nil {
		_ = device.Close()
		p.output.ProbeFailure()
		return nil, fmt.Errorf("reader does not answer identity query: %w", err)
	}

	powerDBm, err := device.GetRFPower()
	if err != nil {
		p.output.Warning("power query failed: %v", err)
		powerDBm = 0
	}

	p.output.ProbeSuccess(identity, powerDBm)
	return device, nil
}

// fieldSample aggregates sightings of one EPC during SampleField
type fieldSample struct {
	epc   string
	rssi  int8
	count int
}

// SampleField runs repeated single-shot inventory rounds for the configured
// sample window and prints every distinct tag seen.
func (p *Probes) SampleField(ctx context.Context, device *uhf.Device) error {
	_, _ = fmt.Printf("\nSampling field for %s...\n", p.config.SampleWindow)

	deadline := time.Now().Add(p.config.SampleWindow)
	samples := make(map[string]*fieldSample)

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			break
		}
		results, err := device.SinglePollContext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return fmt.Errorf("inventory round failed: %w", err)
		}
		for _, result := range results {
			key := result.EPCHex()
			sample, ok := samples[key]
			if !ok {
				sample = &fieldSample{epc: key}
				samples[key] = sample
			}
			sample.rssi = result.RSSI
			sample.count++
		}
	}

	if len(samples) == 0 {
		_, _ = fmt.Println("No tags in field.")
		return nil
	}

	ordered := make([]*fieldSample, 0, len(samples))
	for _, sample := range samples {
		ordered = append(ordered, sample)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].count > ordered[j].count
	})

	_, _ = fmt.Printf("%d tag(s) in field:\n", len(ordered))
	for _, sample := range ordered {
		p.output.TagLine(sample.epc, sample.rssi, sample.count)
	}
	return nil
}
