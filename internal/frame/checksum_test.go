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

import "testing"

func TestChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{
			name: "empty data",
			data: []byte{},
			want: 0,
		},
		{
			name: "single byte",
			data: []byte{0x42},
			want: 0x42,
		},
		{
			name: "two bytes",
			data: []byte{0x10, 0x20},
			want: 0x30,
		},
		{
			name: "overflow handling",
			data: []byte{0xFF, 0x01},
			want: 0x00, // 255 + 1 = 256, truncated to 0
		},
		{
			name: "multiple bytes",
			data: []byte{0x01, 0x02, 0x03, 0x04},
			want: 0x0A,
		},
		{
			name: "real get power frame body",
			data: []byte{0x00, 0x0D, 0x00, 0x01, 0x00},
			want: 0x0E,
		},
		{
			name: "real tag notice frame body",
			data: []byte{0x02, 0x27, 0x00, 0x05, 0x1A, 0x30, 0x00, 0x55, 0x66},
			want: 0x33,
		},
	}

	for _, tt := range tests {
		tt := tt // capture loop variable
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Checksum(tt.data); got != tt.want {
				t.Errorf("Checksum() = 0x%02X, want 0x%02X", got, tt.want)
			}
		})
	}
}

func TestValidateChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{
			name: "valid complete frame",
			data: []byte{0xBB, 0x00, 0x0D, 0x00, 0x01, 0x00, 0x0E, 0x7E},
			want: true,
		},
		{
			name: "valid frame without end marker",
			data: []byte{0xBB, 0x00, 0x0D, 0x00, 0x01, 0x00, 0x0E},
			want: true,
		},
		{
			name: "corrupted checksum byte",
			data: []byte{0xBB, 0x00, 0x0D, 0x00, 0x01, 0x00, 0x0F, 0x7E},
			want: false,
		},
		{
			name: "corrupted parameter byte",
			data: []byte{0xBB, 0x00, 0x0D, 0x00, 0x01, 0x01, 0x0E, 0x7E},
			want: false,
		},
		{
			name: "too short to hold a checksum",
			data: []byte{0xBB, 0x00, 0x0D, 0x00, 0x01},
			want: false,
		},
		{
			name: "length field points past the span",
			data: []byte{0xBB, 0x00, 0x0D, 0x00, 0x20, 0x00, 0x0E, 0x7E},
			want: false,
		},
	}

	for _, tt := range tests {
		tt := tt // capture loop variable
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ValidateChecksum(tt.data); got != tt.want {
				t.Errorf("ValidateChecksum() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestChecksumBitFlipProperty verifies that flipping any single bit in the
// checksummed region of a well formed frame invalidates the checksum.
func TestChecksumBitFlipProperty(t *testing.T) {
	t.Parallel()
	base := Build(0x49, []byte{0x00, 0x00, 0x00, 0x00, 0xE2, 0x00, 0x17, 0x22})
	// Covered region is everything between the header and the checksum.
	for pos := 1; pos < len(base)-2; pos++ {
		for bit := 0; bit < 8; bit++ {
			mutated := make([]byte, len(base))
			copy(mutated, base)
			mutated[pos] ^= 1 << bit
			// Keep the structural bytes intact so the checksum
			// position stays where ValidateChecksum expects it.
			if pos == lengthOffset || pos == lengthOffset+1 {
				continue
			}
			if ValidateChecksum(mutated) {
				t.Errorf("bit flip at byte %d bit %d not detected", pos, bit)
			}
		}
	}
}
