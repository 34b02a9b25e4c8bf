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
	"fmt"
	"os"

	"github.com/ZaparooProject/go-uhf/detection"
)

// Output handles consistent formatting of messages
type Output struct {
	verbose bool
}

// NewOutput creates a new output handler
func NewOutput(verbose bool) *Output {
	return &Output{verbose: verbose}
}

// CandidateLine prints one detected port candidate
func (o *Output) CandidateLine(index int, candidate detection.Candidate) {
	switch {
	case candidate.Bridge != "" && candidate.SerialNumber != "":
		_, _ = fmt.Printf("  %d. %s (%s bridge, serial %s)\n",
			index+1, candidate.Path, candidate.Bridge, candidate.SerialNumber)
	case candidate.Bridge != "":
		_, _ = fmt.Printf("  %d. %s (%s bridge)\n", index+1, candidate.Path, candidate.Bridge)
	case candidate.VIDPID != "":
		_, _ = fmt.Printf("  %d. %s (USB %s)\n", index+1, candidate.Path, candidate.VIDPID)
	default:
		_, _ = fmt.Printf("  %d. %s\n", index+1, candidate.Path)
	}
	if o.verbose {
		_, _ = fmt.Printf("     score %d\n", candidate.Score)
	}
}

// ProbeHeader prints the header before probing a port
func (o *Output) ProbeHeader(path string, baud int) {
	if o.verbose {
		_, _ = fmt.Printf("Probing reader at %s @ %d baud\n", path, baud)
	} else {
		_, _ = fmt.Printf("Probing %s... ", path)
	}
}

// ProbeFailure prints the failure indicator for non-verbose mode
func (o *Output) ProbeFailure() {
	if !o.verbose {
		_, _ = fmt.Print("FAIL\n")
	}
}

// ProbeSuccess prints the probe result summary
func (o *Output) ProbeSuccess(identity string, powerDBm int) {
	if o.verbose {
		_, _ = fmt.Printf("   OK: Firmware: %s\n", identity)
		_, _ = fmt.Printf("   OK: Transmit power: %d dBm\n", powerDBm)
	} else {
		_, _ = fmt.Printf("OK (%s, %d dBm)\n", identity, powerDBm)
	}
}

// TagLine prints one sighted tag
func (*Output) TagLine(epc string, rssi int8, count int) {
	_, _ = fmt.Printf("  TAG: %s (RSSI %d dBm, %d sighting(s))\n", epc, rssi, count)
}

// StatsLine prints a periodic soak statistics line
func (*Output) StatsLine(elapsed string, sightings, detected, removed int64, inField int) {
	_, _ = fmt.Printf("[%s] sightings=%d detected=%d removed=%d in_field=%d\n",
		elapsed, sightings, detected, removed, inField)
}

// Verbose prints only when verbose output is enabled
func (o *Output) Verbose(format string, args ...any) {
	if o.verbose {
		_, _ = fmt.Printf(format+"\n", args...)
	}
}

// OK prints a success message
func (*Output) OK(format string, args ...any) {
	_, _ = fmt.Printf("OK: "+format+"\n", args...)
}

// Warning prints a warning message
func (*Output) Warning(format string, args ...any) {
	_, _ = fmt.Printf("WARNING: "+format+"\n", args...)
}

// Error prints an error message to stderr
func (*Output) Error(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "ERROR: "+format+"\n", args...)
}
