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

package testing

import (
	"bytes"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/ZaparooProject/go-uhf/internal/frame"
)

// VirtualTag represents a simulated UHF tag in the reader field
type VirtualTag struct {
	EPC      []byte
	Password [4]byte
	RSSI     int8
	Locked   bool
	Present  bool
}

// NewVirtualTag creates a present, unlocked tag with the given EPC and a
// zero access password.
func NewVirtualTag(epc []byte) *VirtualTag {
	if epc == nil {
		epc = TestEPC
	}
	return &VirtualTag{
		EPC:     append([]byte(nil), epc...),
		RSSI:    -55,
		Present: true,
	}
}

// PC returns the protocol control word the tag reports in sightings.
func (v *VirtualTag) PC() uint16 {
	return PCForEPC(v.EPC)
}

// EPCHex returns the EPC as an uppercase hex string.
func (v *VirtualTag) EPCHex() string {
	return strings.ToUpper(hex.EncodeToString(v.EPC))
}

// Remove takes the tag out of the reader field.
func (v *VirtualTag) Remove() {
	v.Present = false
}

// Insert places the tag back in the reader field.
func (v *VirtualTag) Insert() {
	v.Present = true
}

// VirtualReader simulates the module side of the wire protocol. It consumes
// command frames and produces the chunks a real module would transmit back,
// tracking power, polling state and the tags in its field.
type VirtualReader struct {
	Firmware     string
	Tags         []*VirtualTag
	PowerDBm     int
	mu           sync.Mutex
	Polling      bool
	EchoCommands bool
}

// NewVirtualReader creates a reader with default power and firmware
// identity and the given tags in its field.
func NewVirtualReader(tags ...*VirtualTag) *VirtualReader {
	return &VirtualReader{
		Tags:     tags,
		PowerDBm: 26,
		Firmware: "UHF RFID READER V2.3",
	}
}

// HandleFrame processes one host command frame and returns the chunks the
// module would transmit in reply, in order. Unparseable frames and
// non-command frames produce no reply, like a real module ignoring noise.
func (r *VirtualReader) HandleFrame(raw []byte) [][]byte {
	f := frame.Parse(raw)
	if f == nil || f.Kind != frame.KindCommand {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var out [][]byte
	if r.EchoCommands {
		out = append(out, append([]byte(nil), raw...))
	}

	switch f.Command {
	case CmdMultiPoll:
		r.Polling = true
		out = append(out, r.sightings(CmdMultiPoll)...)
	case CmdStopMultiPoll:
		r.Polling = false
		out = append(out, BuildStatusResponse(CmdStopMultiPoll, StatusOK))
	case CmdSinglePoll:
		notices := r.sightings(CmdSinglePoll)
		if len(notices) == 0 {
			out = append(out, BuildStatusResponse(CmdSinglePoll, StatusNoTag))
		}
		out = append(out, notices...)
	case CmdGetRFPower:
		out = append(out, BuildPowerResponse(r.PowerDBm))
	case CmdSetRFPower:
		if len(f.Params) >= 2 {
			centi := int(f.Params[0])<<8 | int(f.Params[1])
			r.PowerDBm = centi / 100
		}
		out = append(out, BuildStatusResponse(CmdSetRFPower, StatusOK))
	case CmdFirmwareInfo:
		out = append(out, BuildFirmwareResponse(r.Firmware))
	case CmdWriteEPC:
		out = append(out, BuildStatusResponse(CmdWriteEPC, r.writeEPC(f.Params)))
	case CmdLockTag:
		out = append(out, BuildStatusResponse(CmdLockTag, r.lockTag(f.Params)))
	default:
		out = append(out, BuildStatusResponse(f.Command, StatusUnsupported))
	}
	return out
}

// sightings builds one notice per present tag.
func (r *VirtualReader) sightings(cmd byte) [][]byte {
	var out [][]byte
	for _, tag := range r.Tags {
		if !tag.Present {
			continue
		}
		params := make([]byte, 0, len(tag.EPC)+3)
		params = append(params, byte(tag.RSSI), byte(tag.PC()>>8), byte(tag.PC()))
		params = append(params, tag.EPC...)
		out = append(out, BuildNotice(cmd, params))
	}
	return out
}

// writeEPC applies a write-EPC command. The payload is access password,
// bank selector, start word, word count and the new EPC bytes.
func (r *VirtualReader) writeEPC(params []byte) byte {
	if len(params) < 10 {
		return StatusWriteFailed
	}
	tag := r.firstPresent()
	if tag == nil {
		return StatusNoTag
	}
	if tag.Locked && !bytes.Equal(params[:4], tag.Password[:]) {
		return StatusAccessDenied
	}
	epc := params[9:]
	if len(epc) == 0 || len(epc)%2 != 0 {
		return StatusWriteFailed
	}
	tag.EPC = append([]byte(nil), epc...)
	return StatusOK
}

// lockTag applies a lock command. The payload is the access password
// followed by the lock mask.
func (r *VirtualReader) lockTag(params []byte) byte {
	if len(params) < 4 {
		return StatusWriteFailed
	}
	tag := r.firstPresent()
	if tag == nil {
		return StatusNoTag
	}
	if !bytes.Equal(params[:4], tag.Password[:]) {
		return StatusAccessDenied
	}
	tag.Locked = true
	return StatusOK
}

func (r *VirtualReader) firstPresent() *VirtualTag {
	for _, tag := range r.Tags {
		if tag.Present {
			return tag
		}
	}
	return nil
}
