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

// Package frame provides frame manipulation and protocol constants for UHF
// reader communication
package frame

// Frame markers and control bytes
const (
	Header    = 0xBB // Standard frame header
	HeaderAlt = 0xBF // Alternate header used by some firmware revisions
	EndMarker = 0x7E // Frame end marker
)

// Kind is the frame type byte that follows the header. It distinguishes
// commands sent by the host, responses from the module and unsolicited
// notices pushed by the module during polling.
type Kind byte

// Frame kinds
const (
	KindCommand  Kind = 0x00 // Host to module command (or a module echo of one)
	KindResponse Kind = 0x01 // Module response to a command
	KindNotice   Kind = 0x02 // Unsolicited module notice, e.g. a tag sighting
)

// String returns a short human-readable name for the frame kind.
func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindResponse:
		return "response"
	case KindNotice:
		return "notice"
	default:
		return "unknown"
	}
}

// Frame layout offsets. A complete frame is
// [header][kind][command][lenHi][lenLo][params...][checksum][end].
const (
	kindOffset    = 1
	commandOffset = 2
	lengthOffset  = 3
	paramsOffset  = 5
)

// Frame size limits
const (
	MinFrameLength  = 7      // Minimum complete frame (zero params, end marker present)
	MaxParamsLength = 0xFFFF // Length field is 16 bits big-endian
	MaxPendingBytes = 1024   // Reassembly buffer ceiling before wholesale discard
)
