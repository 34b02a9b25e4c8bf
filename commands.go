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

package uhf

import (
	"fmt"

	"github.com/ZaparooProject/go-uhf/internal/frame"
)

// UHF module command codes
const (
	cmdFirmwareInfo  = 0x03
	cmdGetRFPower    = 0x0D
	cmdSinglePoll    = 0x22
	cmdMultiPoll     = 0x27
	cmdStopMultiPoll = 0x28
	cmdWriteEPC      = 0x49
	cmdLockTag       = 0x82
	cmdSetRFPower    = 0xB6
)

// Protocol sizes and limits
const (
	// EPCLength is the fixed EPC size the write operation accepts, matching
	// a 96-bit EPC which is what the bundled modules ship with
	EPCLength = 12
	// AccessPasswordLength is the EPC Gen2 access password size
	AccessPasswordLength = 4
	// RFPowerMin is the lowest transmit power the module accepts, in dBm
	RFPowerMin = 15
	// RFPowerMax is the highest transmit power the module accepts, in dBm
	RFPowerMax = 26
	// RFPowerDefault is reported when a module echoes the power query
	// without answering it
	RFPowerDefault = 26
)

// EPC memory geometry for write commands. Word 0 holds the tag CRC and word
// 1 the PC, so EPC data starts at word 2 of bank 01.
const (
	epcBank      = 0x01
	epcStartWord = 0x0002
	epcWordSize  = 2
)

// lockPayloadEPCWrite is the Gen2 lock mask and action selecting a write
// lock on the EPC bank.
var lockPayloadEPCWrite = []byte{0x00, 0x80, 0x20}

// multiPollReserved is a fixed selector byte the multi poll command carries
// before the repeat count.
const multiPollReserved byte = 0x22

// buildSinglePollCommand encodes a one-shot inventory round.
func buildSinglePollCommand() []byte {
	return frame.Build(cmdSinglePoll, nil)
}

// buildMultiPollCommand encodes a continuous inventory command. A repeat
// count of zero asks the module to poll until explicitly stopped.
func buildMultiPollCommand(repeat uint16) []byte {
	return frame.Build(cmdMultiPoll, []byte{multiPollReserved, byte(repeat >> 8), byte(repeat)})
}

// buildStopMultiPollCommand encodes the stop for a continuous inventory.
func buildStopMultiPollCommand() []byte {
	return frame.Build(cmdStopMultiPoll, nil)
}

// buildGetRFPowerCommand encodes the transmit power query.
func buildGetRFPowerCommand() []byte {
	return frame.Build(cmdGetRFPower, []byte{0x00})
}

// buildSetRFPowerCommand encodes a transmit power change. The module takes
// the power in hundredths of a dBm, big-endian.
func buildSetRFPowerCommand(dbm int) ([]byte, error) {
	if dbm < RFPowerMin || dbm > RFPowerMax {
		return nil, fmt.Errorf("%w: power %d dBm outside %d-%d",
			ErrInvalidParameter, dbm, RFPowerMin, RFPowerMax)
	}
	centi := uint16(dbm * 100)
	return frame.Build(cmdSetRFPower, []byte{byte(centi >> 8), byte(centi)}), nil
}

// buildFirmwareInfoCommand encodes the firmware identity query.
func buildFirmwareInfoCommand() []byte {
	return frame.Build(cmdFirmwareInfo, []byte{0x00})
}

// buildWriteEPCCommand encodes an EPC write. The payload carries the access
// password, the EPC bank selector, the start word, the word count and the
// EPC itself. Only exact EPCLength writes are supported; anything else is a
// caller error caught before any transport traffic.
func buildWriteEPCCommand(password [AccessPasswordLength]byte, epc []byte) ([]byte, error) {
	if len(epc) != EPCLength {
		return nil, fmt.Errorf("%w: EPC must be exactly %d bytes, got %d",
			ErrInvalidParameter, EPCLength, len(epc))
	}
	words := uint16(EPCLength / epcWordSize)
	params := make([]byte, 0, AccessPasswordLength+5+EPCLength)
	params = append(params, password[:]...)
	params = append(params, epcBank)
	params = append(params, byte(epcStartWord>>8), byte(epcStartWord))
	params = append(params, byte(words>>8), byte(words))
	params = append(params, epc...)
	return frame.Build(cmdWriteEPC, params), nil
}

// buildLockTagCommand encodes a lock of the EPC bank against unsecured
// writes, authenticated with the given access password.
func buildLockTagCommand(password [AccessPasswordLength]byte) []byte {
	params := make([]byte, 0, AccessPasswordLength+len(lockPayloadEPCWrite))
	params = append(params, password[:]...)
	params = append(params, lockPayloadEPCWrite...)
	return frame.Build(cmdLockTag, params)
}
