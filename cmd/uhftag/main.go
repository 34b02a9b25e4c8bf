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
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	uhf "github.com/ZaparooProject/go-uhf"
	"github.com/ZaparooProject/go-uhf/detection"
	"github.com/ZaparooProject/go-uhf/polling"
	"github.com/ZaparooProject/go-uhf/transport/serialport"
)

type config struct {
	devicePath *string
	timeout    *time.Duration
	writeEPC   *string
	password   *string
	baudRate   *int
	power      *int
	lockTag    *bool
	debug      *bool
}

func parseFlags() *config {
	cfg := &config{
		devicePath: flag.String("device", "",
			"Serial device path (e.g., /dev/ttyUSB0 or COM3). Leave empty to use the first port found."),
		baudRate: flag.Int("baud", serialport.DefaultBaudRate, "Serial baud rate"),
		timeout:  flag.Duration("timeout", 30*time.Second, "How long to keep scanning (default: 30s)"),
		writeEPC: flag.String("write", "",
			"New EPC as hex (24 digits) to write to the next tag (if not specified, will only scan)"),
		lockTag: flag.Bool("lock", false, "Lock the EPC bank of the next tag against unsecured writes"),
		password: flag.String("password", "",
			"Access password as hex (8 digits) for write and lock operations"),
		power: flag.Int("power", 0,
			fmt.Sprintf("Transmit power in dBm (%d-%d), 0 leaves the module setting alone",
				uhf.RFPowerMin, uhf.RFPowerMax)),
		debug: flag.Bool("debug", false, "Enable debug output"),
	}
	flag.Parse()

	// Enable debug output if --debug flag is set
	if *cfg.debug {
		uhf.SetDebugEnabled(true)
	}

	return cfg
}

// pickPort resolves the serial port to use, falling back to the most
// plausible reader port when none was given.
func pickPort(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	candidates, err := detection.List(detection.Options{})
	if err != nil {
		return "", fmt.Errorf("failed to scan for readers: %w", err)
	}
	if len(candidates) == 0 {
		return "", errors.New("no likely reader port found, use -device to name one")
	}
	best := candidates[0]
	if best.Bridge != "" {
		_, _ = fmt.Printf("No device given, using %s (%s bridge)\n", best.Path, best.Bridge)
	} else {
		_, _ = fmt.Printf("No device given, using %s\n", best.Path)
	}
	return best.Path, nil
}

func connectDevice(cfg *config) (*uhf.Device, error) {
	port, err := pickPort(*cfg.devicePath)
	if err != nil {
		return nil, err
	}

	_, _ = fmt.Printf("Opening device: %s @ %d baud\n", port, *cfg.baudRate)
	transport, err := serialport.New(port, serialport.WithBaudRate(*cfg.baudRate))
	if err != nil {
		return nil, fmt.Errorf("failed to open serial transport: %w", err)
	}

	var opts []uhf.Option
	if *cfg.password != "" {
		password, perr := hex.DecodeString(*cfg.password)
		if perr != nil {
			_ = transport.Close()
			return nil, fmt.Errorf("invalid -password hex: %w", perr)
		}
		opts = append(opts, uhf.WithAccessPassword(password))
	}

	device, err := uhf.New(transport, opts...)
	if err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("failed to create device: %w", err)
	}
	if err := device.Connect(); err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("failed to connect to reader: %w", err)
	}

	// Show module identity and current power
	if identity, idErr := device.GetFirmwareIdentity(); idErr == nil {
		_, _ = fmt.Printf("Reader firmware: %s\n", identity)
	}
	if dbm, powerErr := device.GetRFPower(); powerErr == nil {
		_, _ = fmt.Printf("Transmit power: %d dBm\n", dbm)
	}

	return device, nil
}

func applyPower(device *uhf.Device, cfg *config) error {
	if *cfg.power == 0 {
		return nil
	}
	if err := device.SetRFPower(*cfg.power); err != nil {
		return fmt.Errorf("failed to set transmit power: %w", err)
	}
	_, _ = fmt.Printf("Transmit power set to %d dBm\n", *cfg.power)
	return nil
}

// parseWriteEPC decodes and validates the -write flag.
func parseWriteEPC(cfg *config) ([]byte, error) {
	if *cfg.writeEPC == "" {
		return nil, nil
	}
	epc, err := hex.DecodeString(*cfg.writeEPC)
	if err != nil {
		return nil, fmt.Errorf("invalid -write hex: %w", err)
	}
	if len(epc) != uhf.EPCLength {
		return nil, fmt.Errorf("-write must be %d bytes of hex, got %d", uhf.EPCLength, len(epc))
	}
	return epc, nil
}

func runTagOperation(ctx context.Context, scanner *polling.Scanner, cfg *config, newEPC []byte) error {
	_, _ = fmt.Println("Waiting for tag...")

	err := scanner.WriteToNextTag(ctx, *cfg.timeout,
		func(ctx context.Context, device *uhf.Device, tag *polling.TagState) error {
			_, _ = fmt.Printf("Tag in field: %s (RSSI %d dBm)\n", tag.EPC, tag.RSSI)

			if newEPC != nil {
				result, werr := device.WriteEPCContext(ctx, newEPC)
				if werr != nil {
					return werr
				}
				_, _ = fmt.Println(result.Message())
				if !result.Success() {
					return result.Err
				}

				verified, verr := device.VerifyEPCContext(ctx, newEPC, 0)
				if verr != nil {
					return fmt.Errorf("verify failed: %w", verr)
				}
				if !verified {
					return errors.New("tag does not answer with its new EPC")
				}
				_, _ = fmt.Println("New EPC verified in field")
			}

			if *cfg.lockTag {
				result, lerr := device.LockTagContext(ctx, lockPassword(cfg))
				if lerr != nil {
					return lerr
				}
				_, _ = fmt.Println(result.Message())
				if !result.Success() {
					return result.Err
				}
			}
			return nil
		})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			_, _ = fmt.Printf("timeout: no tag detected within %s\n", *cfg.timeout)
			return nil
		}
		return fmt.Errorf("tag operation failed: %w", err)
	}

	_, _ = fmt.Println("Tag operation completed successfully!")
	return nil
}

// lockPassword returns the password the lock keeps protecting the tag with.
func lockPassword(cfg *config) []byte {
	if *cfg.password != "" {
		if password, err := hex.DecodeString(*cfg.password); err == nil {
			return password
		}
	}
	return make([]byte, uhf.AccessPasswordLength)
}

func runScanLoop(ctx context.Context, device *uhf.Device) error {
	monitor := polling.NewMonitor(device, nil)

	monitor.OnTagDetected = func(tag *polling.TagState) {
		_, _ = fmt.Printf("Tag entered: %s (RSSI %d dBm)\n", tag.EPC, tag.RSSI)
	}
	monitor.OnTagRemoved = func(tag *polling.TagState) {
		_, _ = fmt.Printf("Tag left:    %s (seen %d times)\n", tag.EPC, tag.SeenCount)
	}

	err := monitor.Start(ctx)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		metrics := monitor.GetMetrics()
		_, _ = fmt.Printf("Scan finished: %d sightings, %d tags seen, %d removed\n",
			metrics.Sightings, metrics.TagsDetected, metrics.TagsRemoved)
		return nil
	}
	return err
}

func main() {
	cfg := parseFlags()

	newEPC, err := parseWriteEPC(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	device, err := connectDevice(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to connect to device: %v\n", err)
		return
	}
	defer func() { _ = device.Close() }()

	if err := applyPower(device, cfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *cfg.timeout)
	defer cancel()

	if newEPC != nil || *cfg.lockTag {
		scanner, serr := polling.NewScanner(device, nil)
		if serr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to create scanner: %v\n", serr)
			return
		}
		if serr := scanner.Start(ctx); serr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to start scanner: %v\n", serr)
			return
		}
		defer func() { _ = scanner.Stop() }()

		if err := runTagOperation(ctx, scanner, cfg, newEPC); err != nil {
			_, _ = fmt.Printf("%v\n", err)
		}
		return
	}

	_, _ = fmt.Printf("Scanning for tags (timeout: %s)...\n", *cfg.timeout)
	if err := runScanLoop(ctx, device); err != nil {
		_, _ = fmt.Printf("%v\n", err)
	}
}
