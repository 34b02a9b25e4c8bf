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
	"context"
	"fmt"
	"strings"
)

// FirmwareIdentityUnknown is reported when the module answers the identity
// query without any usable identity text, proving connectivity but nothing
// more.
const FirmwareIdentityUnknown = "connected (no identity reported)"

// GetFirmwareIdentity queries the module's firmware identity. See
// GetFirmwareIdentityContext.
func (d *Device) GetFirmwareIdentity() (string, error) {
	return d.GetFirmwareIdentityContext(context.Background())
}

// GetFirmwareIdentityContext queries the module's firmware identity string.
// The identity is whatever printable text the module reports, typically a
// model and version like "UHF RFID READER v2.1". A module that echoes the
// query or truncates the payload yields FirmwareIdentityUnknown rather than
// an error, so this call doubles as a connectivity probe: only a timeout
// means nobody is talking.
func (d *Device) GetFirmwareIdentityContext(ctx context.Context) (string, error) {
	f, err := d.sendAndAwait(ctx, buildFirmwareInfoCommand(), cmdFirmwareInfo, d.config.Timeout)
	if err != nil {
		return "", fmt.Errorf("get firmware identity: %w", err)
	}
	if identity := printableString(f.Params); identity != "" {
		return identity, nil
	}
	return FirmwareIdentityUnknown, nil
}

// printableString extracts the printable ASCII run of b, trimming
// surrounding whitespace. Status prefixes and padding bytes fall away.
func printableString(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		if c >= 0x20 && c <= 0x7E {
			sb.WriteByte(c)
		}
	}
	return strings.TrimSpace(sb.String())
}
