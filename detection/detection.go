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

// Package detection finds serial ports likely to host a UHF reader module.
//
// Reader boards do not enumerate as anything reader-specific; they show up
// behind generic USB serial bridges. Detection therefore ranks ports by how
// much their USB identity looks like the bridges these boards actually
// ship with, rather than trying to prove a reader is present. Proving it
// is the caller's job, by connecting and querying firmware identity.
package detection

import (
	"fmt"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Candidate is a serial port that may host a UHF reader module, ranked by
// how plausible that is.
type Candidate struct {
	// Path is the device path to open, for example /dev/ttyUSB0 or COM3
	Path string
	// VIDPID identifies the USB device as VID:PID in uppercase hex, empty
	// for non-USB ports
	VIDPID string
	// Bridge names the recognized USB serial bridge chip, empty when the
	// bridge is not one reader boards are known to use
	Bridge string
	// SerialNumber is the USB serial number when the OS reports one
	SerialNumber string
	// Score orders candidates; higher is more plausible
	Score int
}

// knownBridges are the USB serial bridge chips UHF reader boards ship
// with. A match is a strong signal, not proof: plenty of other gadgets use
// the same bridges.
var knownBridges = map[string]string{
	"1A86:7523": "CH340",
	"1A86:55D4": "CH9102",
	"10C4:EA60": "CP210x",
	"0403:6001": "FT232R",
	"067B:2303": "PL2303",
}

// Candidate scores. A known bridge outranks any unknown USB device, which
// outranks a legacy port that reports no USB identity at all.
const (
	scoreKnownBridge = 100
	scoreUSBSerial   = 10
	scoreBarePort    = 1
)

// Options narrows detection. The zero value applies only the built-in
// filtering.
type Options struct {
	// Blocklist lists VID:PID entries never to offer, in addition to
	// DefaultBlocklist
	Blocklist []string
	// IgnorePaths lists device paths never to offer
	IgnorePaths []string
}

// List returns the plausible reader ports in descending score order.
// An empty result with a nil error means enumeration worked but nothing
// plausible is attached.
func List(opts Options) ([]Candidate, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	return candidatesFrom(ports, opts), nil
}

// Best returns the path of the highest ranked candidate.
func Best(opts Options) (string, error) {
	candidates, err := List(opts)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no serial port looks like a UHF reader")
	}
	return candidates[0].Path, nil
}

// candidatesFrom filters and ranks an enumerated port list.
func candidatesFrom(ports []*enumerator.PortDetails, opts Options) []Candidate {
	blocklist := append(DefaultBlocklist(), opts.Blocklist...)

	candidates := make([]Candidate, 0, len(ports))
	for _, port := range ports {
		if IsPathIgnored(port.Name, opts.IgnorePaths) {
			continue
		}
		if isSystemPort(port.Name) {
			continue
		}

		c := Candidate{Path: port.Name, Score: scoreBarePort}
		if port.IsUSB {
			c.VIDPID = strings.ToUpper(port.VID + ":" + port.PID)
			c.SerialNumber = port.SerialNumber
			if IsBlocked(c.VIDPID, blocklist) {
				continue
			}
			if bridge, ok := knownBridges[c.VIDPID]; ok {
				c.Bridge = bridge
				c.Score = scoreKnownBridge
			} else {
				c.Score = scoreUSBSerial
			}
		}
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// isSystemPort reports whether a device path names a port that is never a
// reader: Bluetooth bridges and debug consoles.
func isSystemPort(path string) bool {
	lower := strings.ToLower(path)
	return strings.Contains(lower, "bluetooth") ||
		strings.Contains(lower, "debug-console") ||
		strings.Contains(lower, "wlan-debug")
}
