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

// Package testing provides frame builders and a virtual reader for tests.
package testing

import (
	"github.com/ZaparooProject/go-uhf/internal/frame"
)

// Command bytes for reference
const (
	CmdFirmwareInfo  = 0x03
	CmdGetRFPower    = 0x0D
	CmdSinglePoll    = 0x22
	CmdMultiPoll     = 0x27
	CmdStopMultiPoll = 0x28
	CmdWriteEPC      = 0x49
	CmdLockTag       = 0x82
	CmdSetRFPower    = 0xB6
)

// Module status codes used in response frames
const (
	StatusOK           byte = 0x00
	StatusReadFailed   byte = 0x09
	StatusWriteFailed  byte = 0x10
	StatusNoTag        byte = 0x15
	StatusAccessDenied byte = 0x16
	StatusUnsupported  byte = 0x17
	StatusLocked       byte = 0xA0
)

// assemble builds a complete frame of the given kind with a valid checksum.
func assemble(kind frame.Kind, cmd byte, params []byte) []byte {
	buf := make([]byte, 0, len(params)+frame.MinFrameLength)
	buf = append(buf, frame.Header, byte(kind), cmd, byte(len(params)>>8), byte(len(params)))
	buf = append(buf, params...)
	buf = append(buf, frame.Checksum(buf[1:]), frame.EndMarker)
	return buf
}

// BuildResponse creates a response frame for the given command.
func BuildResponse(cmd byte, params []byte) []byte {
	return assemble(frame.KindResponse, cmd, params)
}

// BuildStatusResponse creates a response frame carrying a single status byte.
func BuildStatusResponse(cmd, status byte) []byte {
	return BuildResponse(cmd, []byte{status})
}

// BuildNotice creates an unsolicited notice frame for the given command.
func BuildNotice(cmd byte, params []byte) []byte {
	return assemble(frame.KindNotice, cmd, params)
}

// BuildTagNotice creates a multi-poll tag sighting notice. The payload is
// RSSI, the 16-bit PC word and the EPC bytes.
func BuildTagNotice(rssi int8, pc uint16, epc []byte) []byte {
	params := make([]byte, 0, len(epc)+3)
	params = append(params, byte(rssi), byte(pc>>8), byte(pc))
	params = append(params, epc...)
	return BuildNotice(CmdMultiPoll, params)
}

// BuildSinglePollNotice creates a tag sighting notice attributed to the
// single poll command rather than multi-poll.
func BuildSinglePollNotice(rssi int8, pc uint16, epc []byte) []byte {
	params := make([]byte, 0, len(epc)+3)
	params = append(params, byte(rssi), byte(pc>>8), byte(pc))
	params = append(params, epc...)
	return BuildNotice(CmdSinglePoll, params)
}

// BuildFirmwareResponse creates a firmware identity response carrying the
// given version string.
func BuildFirmwareResponse(version string) []byte {
	return BuildResponse(CmdFirmwareInfo, []byte(version))
}

// BuildPowerResponse creates a get-power response. The module reports
// transmit power in hundredths of a dBm, big-endian.
func BuildPowerResponse(dbm int) []byte {
	centi := dbm * 100
	return BuildResponse(CmdGetRFPower, []byte{byte(centi >> 8), byte(centi)})
}

// PCForEPC returns the protocol control word a tag would report for an EPC
// of the given length. The top five bits hold the EPC word count.
func PCForEPC(epc []byte) uint16 {
	return uint16(len(epc)/2) << 11
}

// CorruptChecksum returns a copy of a frame with its checksum byte flipped.
// The frame must end with the end marker.
func CorruptChecksum(raw []byte) []byte {
	out := append([]byte(nil), raw...)
	if len(out) >= 2 {
		out[len(out)-2] ^= 0xFF
	}
	return out
}

// WithoutEndMarker returns a copy of a frame with the trailing end marker
// removed, as emitted by firmware that omits it.
func WithoutEndMarker(raw []byte) []byte {
	if len(raw) > 0 && raw[len(raw)-1] == frame.EndMarker {
		return append([]byte(nil), raw[:len(raw)-1]...)
	}
	return append([]byte(nil), raw...)
}

// Common EPCs for testing
var (
	// TestEPC is a sample 96-bit EPC
	TestEPC = []byte{0xE2, 0x00, 0x00, 0x17, 0x22, 0x0B, 0x01, 0x44, 0x15, 0x80, 0x5B, 0xDC}

	// TestEPCAlt is a second distinct 96-bit EPC
	TestEPCAlt = []byte{0xE2, 0x80, 0x68, 0x94, 0x00, 0x00, 0x50, 0x0E, 0x88, 0xC4, 0x2D, 0x5B}
)
