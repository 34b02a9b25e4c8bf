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

// Package enable drives the hardware enable input of a reader module
// through a host GPIO pin.
package enable

import (
	"fmt"

	uhf "github.com/ZaparooProject/go-uhf"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIO implements uhf.EnableLine on top of a periph GPIO pin.
type GPIO struct {
	pin       gpio.PinIO
	name      string
	activeLow bool
}

// Option configures a GPIO enable line
type Option func(*GPIO)

// ActiveLow inverts the line for modules whose enable input is active low
func ActiveLow() Option {
	return func(g *GPIO) {
		g.activeLow = true
	}
}

// NewGPIO opens the named pin and drives it to the disabled state. Pin
// names follow periph conventions, e.g. "GPIO22".
func NewGPIO(name string, opts ...Option) (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: gpio pin %s", uhf.ErrDeviceNotFound, name)
	}

	g := &GPIO{pin: pin, name: name}
	for _, opt := range opts {
		opt(g)
	}

	// The module stays powered down until Connect raises the line
	if err := g.Set(false); err != nil {
		return nil, err
	}
	return g, nil
}

// Set drives the line, true powers the module up
func (g *GPIO) Set(enabled bool) error {
	level := gpio.Level(enabled)
	if g.activeLow {
		level = !level
	}
	if err := g.pin.Out(level); err != nil {
		return fmt.Errorf("failed to drive %s: %w", g.name, err)
	}
	return nil
}

// Close halts the pin, leaving the module disabled
func (g *GPIO) Close() error {
	if err := g.pin.Halt(); err != nil {
		return fmt.Errorf("failed to halt %s: %w", g.name, err)
	}
	return nil
}

// Name returns the pin name
func (g *GPIO) Name() string {
	return g.name
}

// Ensure GPIO implements uhf.EnableLine
var _ uhf.EnableLine = (*GPIO)(nil)
