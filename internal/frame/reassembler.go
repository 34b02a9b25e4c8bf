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

// Reassembler accumulates raw transport chunks and carves complete frames
// out of them. Serial transports deliver bytes at arbitrary boundaries, so a
// single chunk may hold a partial frame, several frames, or noise between
// frames. The reassembler is not safe for concurrent use; the device
// serializes access to it.
type Reassembler struct {
	buf []byte
}

// NewReassembler returns an empty reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{}
}

// Len returns the number of buffered bytes not yet consumed by a frame.
func (r *Reassembler) Len() int {
	return len(r.buf)
}

// Reset discards all buffered bytes.
func (r *Reassembler) Reset() {
	r.buf = r.buf[:0]
}

// Feed appends chunk to the internal buffer and extracts every complete
// frame now available, in order. Feeding the same byte stream in different
// chunkings yields the same decoded frames.
//
// Frames missing the trailing end marker are tolerated: a span ending at the
// checksum position is accepted when the byte after it is a new header byte
// or the buffer ends there, which disambiguates an omitted marker from a
// frame still in flight. Spans that fail to decode are dropped. If the
// buffer grows past MaxPendingBytes without yielding a frame it is assumed
// to be garbage from a baud mismatch or noise burst and discarded wholesale.
func (r *Reassembler) Feed(chunk []byte) []*Frame {
	r.buf = append(r.buf, chunk...)

	var frames []*Frame
	for {
		span := r.nextSpan()
		if span == 0 {
			break
		}
		if f := Parse(r.buf[:span]); f != nil {
			frames = append(frames, f)
		} else {
			logger.Debug().
				Int("bytes", span).
				Msg("frame: dropping undecodable span")
		}
		r.buf = r.buf[:copy(r.buf, r.buf[span:])]
	}

	if len(r.buf) > MaxPendingBytes {
		logger.Warn().
			Int("bytes", len(r.buf)).
			Msg("frame: reassembly buffer overflow, discarding")
		r.buf = r.buf[:0]
	}
	return frames
}

// nextSpan locates the next complete frame span at the start of the buffer,
// discarding any leading garbage. It returns the span length in bytes, or 0
// if more data is needed.
func (r *Reassembler) nextSpan() int {
	// Skip to the first header byte. A buffer with no header at all is
	// pure garbage.
	start := -1
	for i, b := range r.buf {
		if IsHeader(b) {
			start = i
			break
		}
	}
	if start < 0 {
		if len(r.buf) > 0 {
			logger.Debug().
				Int("bytes", len(r.buf)).
				Msg("frame: discarding garbage with no header")
			r.buf = r.buf[:0]
		}
		return 0
	}
	if start > 0 {
		logger.Debug().
			Int("bytes", start).
			Msg("frame: discarding garbage before header")
		r.buf = r.buf[:copy(r.buf, r.buf[start:])]
	}

	// Need header, kind, command and the 16-bit length before the frame
	// size is known.
	if len(r.buf) < paramsOffset {
		return 0
	}
	paramsLen := int(r.buf[lengthOffset])<<8 | int(r.buf[lengthOffset+1])
	full := MinFrameLength + paramsLen
	bare := full - 1

	if len(r.buf) >= full && r.buf[full-1] == EndMarker {
		return full
	}
	// End marker absent at its expected position. Accept the bare span if
	// the next byte already starts a new frame, or if the buffer ends
	// exactly at the checksum so nothing else can follow yet.
	if len(r.buf) > bare && IsHeader(r.buf[bare]) {
		return bare
	}
	if len(r.buf) == bare && bare >= MinFrameLength {
		return bare
	}
	return 0
}
