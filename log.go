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
	"os"
	"time"

	"github.com/ZaparooProject/go-uhf/internal/frame"
	"github.com/rs/zerolog"
)

var logger = zerolog.Nop()

// SetLogger installs a logger for all library diagnostics, including frame
// level warnings such as checksum mismatches and discarded garbage. The
// default is a no-op logger. Install it before starting traffic; the
// variable is not synchronized.
func SetLogger(l zerolog.Logger) {
	logger = l
	frame.SetLogger(l)
}

// SetDebugEnabled toggles verbose debug logging to stderr. It is a
// convenience for command line tools; applications that already run zerolog
// should use SetLogger instead.
func SetDebugEnabled(enabled bool) {
	if !enabled {
		SetLogger(zerolog.Nop())
		return
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	SetLogger(zerolog.New(out).Level(zerolog.DebugLevel).With().Timestamp().Logger())
}

func debugf(format string, args ...any) {
	logger.Debug().Msgf(format, args...)
}

func warnf(format string, args ...any) {
	logger.Warn().Msgf(format, args...)
}
