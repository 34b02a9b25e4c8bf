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

package main

import (
	"time"

	"github.com/ZaparooProject/go-uhf/transport/serialport"
)

// Operating modes
type Mode int

const (
	ModeComprehensive Mode = iota
	ModeQuick
	ModeSoak
)

// Config holds application configuration
type Config struct {
	Mode           Mode
	DevicePath     string
	BaudRate       int
	ConnectTimeout time.Duration
	SampleWindow   time.Duration
	StatsInterval  time.Duration
	RemovalTimeout time.Duration
	Verbose        bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Mode:           ModeComprehensive,
		BaudRate:       serialport.DefaultBaudRate,
		ConnectTimeout: 10 * time.Second,
		SampleWindow:   3 * time.Second,
		StatsInterval:  5 * time.Second,
		RemovalTimeout: 2 * time.Second,
		Verbose:        false,
	}
}
