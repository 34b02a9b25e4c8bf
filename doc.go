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

/*
Package uhf provides a pure Go library for driving UHF RFID reader modules
over a serial byte pipe.

These modules speak a simple framed binary protocol: the host sends command
frames, the module answers with response frames, and while polling it pushes
unsolicited tag notice frames, all interleaved on the same stream. This
library owns the whole protocol engine: framing and checksums, reassembly of
frames from arbitrarily chunked serial reads, correlation of responses to
the single in-flight command, and fan-out of tag sightings to subscribers.

Cheap module firmware is messy and the engine leans into that: checksum
mismatches are logged and tolerated, missing end markers are healed, line
garbage is skipped and bounded, and modules that echo commands back instead
of answering still resolve cleanly after a short grace window.

Features:
  - Continuous polling with broadcast tag sightings (EPC, RSSI, PC)
  - EPC write, EPC bank lock, and presence verification
  - Transmit power control and firmware identification
  - Automatic suspension of polling around exclusive tag operations
  - Retry logic with configurable backoff
  - Optional GPIO enable line tied to the device lifecycle

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-uhf"
	    "github.com/ZaparooProject/go-uhf/transport/serialport"
	)

	// Open the serial port the module hangs off
	transport, err := serialport.New("/dev/ttyUSB0")
	if err != nil {
	    log.Fatal(err)
	}

	device, err := uhf.New(transport)
	if err != nil {
	    log.Fatal(err)
	}
	defer device.Close()

	if err := device.Connect(); err != nil {
	    log.Fatal(err)
	}

	// Or create with custom options
	device, err = uhf.New(transport,
	    uhf.WithTimeout(2*time.Second),
	    uhf.WithAccessPassword([]byte{0xDE, 0xAD, 0xBE, 0xEF}),
	)

	// Stream tag sightings
	sub := device.Subscribe()
	defer sub.Close()
	if err := device.StartPolling(); err != nil {
	    log.Fatal(err)
	}
	for tag := range sub.Events() {
	    fmt.Printf("saw %s at %d dBm\n", tag.EPCHex(), tag.RSSI)
	}

Writing a tag:

	result, err := device.WriteEPC(newEPC)
	if err != nil {
	    log.Fatal(err) // the write never ran
	}
	fmt.Println(result.Message())
	if result.Success() {
	    ok, _ := device.VerifyEPC(newEPC, 0)
	    fmt.Println("verified:", ok)
	}

Error Handling:

All operations return meaningful errors that can be inspected:

	if errors.Is(err, uhf.ErrTimeout) {
	    // no module answered in time
	}

Tag operations additionally return a structured result whose Status, Code
and Message distinguish module rejections from timeouts and transport
failures.

Thread Safety:

Device is safe for concurrent use. Commands are serialized on a single
in-flight slot; a newer command cancels the pending one with
ErrRequestCanceled.
*/
package uhf
