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

package polling

import (
	"sort"
	"time"

	uhf "github.com/ZaparooProject/go-uhf"
)

// TagState tracks one tag currently believed to be in the reader field.
// Unlike HF readers that see a single card, a UHF reader reports every tag
// in range, so presence is tracked per EPC.
type TagState struct {
	FirstSeen time.Time
	LastSeen  time.Time
	EPC       string
	SeenCount int
	PC        uint16
	RSSI      int8
}

// FieldState is the set of tags currently in the field, keyed by EPC hex.
// It is not safe for concurrent use; the Monitor serializes access.
type FieldState struct {
	tags map[string]*TagState
}

// NewFieldState creates an empty field
func NewFieldState() *FieldState {
	return &FieldState{tags: make(map[string]*TagState)}
}

// Observe records a sighting and returns a copy of the tag state plus
// whether this EPC is new to the field.
func (f *FieldState) Observe(result uhf.TagPollResult, now time.Time) (TagState, bool) {
	key := result.EPCHex()
	tag, ok := f.tags[key]
	if !ok {
		tag = &TagState{
			EPC:       key,
			FirstSeen: now,
		}
		f.tags[key] = tag
	}
	tag.LastSeen = now
	tag.SeenCount++
	tag.PC = result.PC
	tag.RSSI = result.RSSI
	return *tag, !ok
}

// Expired removes and returns every tag not seen since the cutoff.
func (f *FieldState) Expired(cutoff time.Time) []TagState {
	var expired []TagState
	for key, tag := range f.tags {
		if tag.LastSeen.Before(cutoff) {
			expired = append(expired, *tag)
			delete(f.tags, key)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].EPC < expired[j].EPC })
	return expired
}

// Touch refreshes every tag's last seen time. Used after polling was
// deliberately suspended, so the gap does not count as absence.
func (f *FieldState) Touch(now time.Time) {
	for _, tag := range f.tags {
		tag.LastSeen = now
	}
}

// Snapshot returns a copy of the current field, sorted by EPC.
func (f *FieldState) Snapshot() []TagState {
	out := make([]TagState, 0, len(f.tags))
	for _, tag := range f.tags {
		out = append(out, *tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EPC < out[j].EPC })
	return out
}

// Len returns the number of tags in the field
func (f *FieldState) Len() int {
	return len(f.tags)
}

// Reset clears the field
func (f *FieldState) Reset() {
	f.tags = make(map[string]*TagState)
}
