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

package frame

import "encoding/binary"

// Frame is a single decoded protocol frame.
type Frame struct {
	Kind       Kind
	Command    byte
	Params     []byte
	ChecksumOK bool
	Raw        []byte
}

// IsHeader reports whether b is a valid frame header byte.
func IsHeader(b byte) bool {
	return b == Header || b == HeaderAlt
}

// Checksum returns the low byte of the sum of data. The checksum of a frame
// covers kind, command, both length bytes and all parameter bytes.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// Build assembles a complete command frame around the given command code and
// parameter bytes, including header, length, checksum and end marker. params
// longer than MaxParamsLength cannot be represented in the 16-bit length
// field; domain encoders never come close to that limit.
func Build(command byte, params []byte) []byte {
	buf := make([]byte, 0, len(params)+MinFrameLength)
	buf = append(buf, Header, byte(KindCommand), command,
		byte(len(params)>>8), byte(len(params)))
	buf = append(buf, params...)
	buf = append(buf, Checksum(buf[kindOffset:]), EndMarker)
	return buf
}

// Parse decodes a single frame span as carved out by the Reassembler. The
// span must start with a header byte and may omit the trailing end marker.
// Structural problems (too short, unknown kind, length field disagreeing
// with the span size) return nil. A checksum mismatch does not reject the
// frame: the frame is returned with ChecksumOK false and a warning is
// logged, since several firmware revisions ship off-by-one checksum bugs.
func Parse(data []byte) *Frame {
	if len(data) < MinFrameLength-1 {
		return nil
	}
	if !IsHeader(data[0]) {
		return nil
	}
	kind := Kind(data[kindOffset])
	if kind != KindCommand && kind != KindResponse && kind != KindNotice {
		logger.Debug().
			Uint8("kind", byte(kind)).
			Msg("frame: dropping frame with unknown kind")
		return nil
	}

	paramsLen := int(binary.BigEndian.Uint16(data[lengthOffset : lengthOffset+2]))
	checksumAt := paramsOffset + paramsLen
	switch len(data) {
	case checksumAt + 2:
		// Full frame, end marker expected in last position.
		if data[len(data)-1] != EndMarker {
			return nil
		}
	case checksumAt + 1:
		// End marker omitted, checksum is the final byte.
		if len(data) < MinFrameLength {
			return nil
		}
	default:
		// Length field does not account for the span.
		return nil
	}

	checksumOK := Checksum(data[kindOffset:checksumAt]) == data[checksumAt]
	if !checksumOK {
		logger.Warn().
			Uint8("command", data[commandOffset]).
			Uint8("got", data[checksumAt]).
			Uint8("want", Checksum(data[kindOffset:checksumAt])).
			Msg("frame: checksum mismatch, accepting frame anyway")
	}

	raw := make([]byte, len(data))
	copy(raw, data)
	return &Frame{
		Kind:       kind,
		Command:    data[commandOffset],
		Params:     raw[paramsOffset:checksumAt],
		ChecksumOK: checksumOK,
		Raw:        raw,
	}
}

// ValidateChecksum recomputes the checksum of a complete frame and compares
// it against the embedded checksum byte. It accepts frames with or without
// the trailing end marker and returns false for spans too short or too long
// to contain the checksum position implied by the length field.
func ValidateChecksum(data []byte) bool {
	if len(data) < MinFrameLength-1 {
		return false
	}
	paramsLen := int(binary.BigEndian.Uint16(data[lengthOffset : lengthOffset+2]))
	checksumAt := paramsOffset + paramsLen
	if checksumAt >= len(data) || len(data) > checksumAt+2 {
		return false
	}
	return Checksum(data[kindOffset:checksumAt]) == data[checksumAt]
}
