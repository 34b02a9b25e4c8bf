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

package enable

import (
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// TestSetDrivesPin verifies Set maps enabled state to pin level
func TestSetDrivesPin(t *testing.T) {
	t.Parallel()

	pin := &gpiotest.Pin{N: "TEST22", Num: 22}
	line := &GPIO{pin: pin, name: "TEST22"}

	if err := line.Set(true); err != nil {
		t.Fatalf("Set(true) failed: %v", err)
	}
	if pin.Read() != gpio.High {
		t.Error("expected pin high after Set(true)")
	}

	if err := line.Set(false); err != nil {
		t.Fatalf("Set(false) failed: %v", err)
	}
	if pin.Read() != gpio.Low {
		t.Error("expected pin low after Set(false)")
	}
}

// TestSetActiveLowInvertsPin verifies the active low option flips levels
func TestSetActiveLowInvertsPin(t *testing.T) {
	t.Parallel()

	pin := &gpiotest.Pin{N: "TEST23", Num: 23}
	line := &GPIO{pin: pin, name: "TEST23", activeLow: true}

	if err := line.Set(true); err != nil {
		t.Fatalf("Set(true) failed: %v", err)
	}
	if pin.Read() != gpio.Low {
		t.Error("expected pin low after Set(true) on active low line")
	}

	if err := line.Set(false); err != nil {
		t.Fatalf("Set(false) failed: %v", err)
	}
	if pin.Read() != gpio.High {
		t.Error("expected pin high after Set(false) on active low line")
	}
}

// TestName verifies the pin name survives construction
func TestName(t *testing.T) {
	t.Parallel()

	line := &GPIO{name: "GPIO7"}
	if line.Name() != "GPIO7" {
		t.Errorf("expected name GPIO7, got %s", line.Name())
	}
}
