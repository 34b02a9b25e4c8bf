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
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-uhf/internal/frame"
)

// OpStatus classifies the outcome of a tag operation.
type OpStatus int

const (
	// OpSuccess means the module confirmed the operation
	OpSuccess OpStatus = iota
	// OpDeviceError means the module answered with an error status
	OpDeviceError
	// OpTimeout means no response arrived within the deadline, retries
	// included
	OpTimeout
	// OpTransportError means the byte pipe itself failed
	OpTransportError
)

// String returns a short name for the status.
func (s OpStatus) String() string {
	switch s {
	case OpSuccess:
		return "success"
	case OpDeviceError:
		return "device error"
	case OpTimeout:
		return "timeout"
	case OpTransportError:
		return "transport error"
	default:
		return "unknown"
	}
}

// WriteResult reports the outcome of an EPC write in enough detail to
// render a specific diagnostic rather than a generic failure.
type WriteResult struct {
	// Err is the underlying error for non-success outcomes
	Err error
	// EPC is the EPC that was written
	EPC []byte
	// Duration is how long the operation took, suspension included
	Duration time.Duration
	// Status classifies the outcome
	Status OpStatus
	// Code is the module's error status byte when Status is OpDeviceError
	Code byte
}

// Success reports whether the write was confirmed.
func (r *WriteResult) Success() bool {
	return r.Status == OpSuccess
}

// Message renders a one-line human readable outcome.
func (r *WriteResult) Message() string {
	return opMessage("EPC write", r.Status, r.Code, r.Err, r.Duration)
}

// LockResult reports the outcome of a tag lock.
type LockResult struct {
	// Err is the underlying error for non-success outcomes
	Err error
	// Duration is how long the operation took, suspension included
	Duration time.Duration
	// Status classifies the outcome
	Status OpStatus
	// Code is the module's error status byte when Status is OpDeviceError
	Code byte
}

// Success reports whether the lock was confirmed.
func (r *LockResult) Success() bool {
	return r.Status == OpSuccess
}

// Message renders a one-line human readable outcome.
func (r *LockResult) Message() string {
	return opMessage("tag lock", r.Status, r.Code, r.Err, r.Duration)
}

func opMessage(op string, status OpStatus, code byte, err error, d time.Duration) string {
	switch status {
	case OpSuccess:
		return fmt.Sprintf("%s ok in %s", op, d.Round(time.Millisecond))
	case OpDeviceError:
		return fmt.Sprintf("%s rejected by module: 0x%02X %s (after %s)",
			op, code, deviceErrorText(code), d.Round(time.Millisecond))
	case OpTimeout:
		return fmt.Sprintf("%s got no response after %s", op, d.Round(time.Millisecond))
	case OpTransportError:
		return fmt.Sprintf("%s transport failure after %s: %v", op, d.Round(time.Millisecond), err)
	default:
		return fmt.Sprintf("%s finished with unknown status", op)
	}
}

// WriteEPC writes a new EPC to the tag in the field. See WriteEPCContext.
func (d *Device) WriteEPC(epc []byte) (*WriteResult, error) {
	return d.WriteEPCContext(context.Background(), epc)
}

// WriteEPCContext writes a new EPC to the singulated tag in the field,
// authenticating with the configured access password. The EPC must be
// exactly EPCLength bytes; anything else is rejected before any transport
// traffic.
//
// Writes need the RF field to themselves: if continuous polling is running
// it is stopped once, the write executes with bounded timeout retries, and
// polling restarts once, whether or not the write succeeded. An error
// return means the operation never ran; otherwise the result carries the
// outcome, including failures.
func (d *Device) WriteEPCContext(ctx context.Context, epc []byte) (*WriteResult, error) {
	raw, err := buildWriteEPCCommand(d.currentAccessPassword(), epc)
	if err != nil {
		return nil, err
	}
	if !d.Connected() {
		return nil, ErrNotConnected
	}

	result := &WriteResult{EPC: append([]byte(nil), epc...)}
	start := time.Now()
	d.withPollingSuspended(ctx, func() {
		result.Status, result.Code, result.Err = d.runExclusive(ctx, raw, cmdWriteEPC)
	})
	result.Duration = time.Since(start)
	debugf("%s", result.Message())
	return result, nil
}

// LockTag locks the tag's EPC bank against unsecured writes. See
// LockTagContext.
func (d *Device) LockTag(newPassword []byte) (*LockResult, error) {
	return d.LockTagContext(context.Background(), newPassword)
}

// LockTagContext locks the EPC bank of the singulated tag against writes
// without the access password. The lock authenticates with the currently
// configured password.
//
// newPassword is validated for shape but not yet transmitted: moving the
// tag to a new password is a reserved-bank write this module's firmware
// does not expose, so a locked tag keeps the password the lock was made
// with. Locking with the factory default password therefore leaves the tag
// writable by anyone who knows the default; set a non-default password via
// SetAccessPassword before relying on the lock.
//
// The same polling suspension discipline as WriteEPCContext applies.
func (d *Device) LockTagContext(ctx context.Context, newPassword []byte) (*LockResult, error) {
	if len(newPassword) != AccessPasswordLength {
		return nil, fmt.Errorf("%w: new password must be %d bytes, got %d",
			ErrInvalidParameter, AccessPasswordLength, len(newPassword))
	}
	if !d.Connected() {
		return nil, ErrNotConnected
	}

	raw := buildLockTagCommand(d.currentAccessPassword())
	result := &LockResult{}
	start := time.Now()
	d.withPollingSuspended(ctx, func() {
		result.Status, result.Code, result.Err = d.runExclusive(ctx, raw, cmdLockTag)
	})
	result.Duration = time.Since(start)
	debugf("%s", result.Message())
	return result, nil
}

// VerifyEPC checks that a tag with the given EPC shows up in the field. See
// VerifyEPCContext.
func (d *Device) VerifyEPC(epc []byte, timeout time.Duration) (bool, error) {
	return d.VerifyEPCContext(context.Background(), epc, timeout)
}

// VerifyEPCContext polls until a sighting matches the expected EPC or the
// timeout elapses. A non-positive timeout uses the configured default. The
// prior polling state is restored afterwards: a device that was idle goes
// back to idle, one that was polling keeps polling.
func (d *Device) VerifyEPCContext(ctx context.Context, epc []byte, timeout time.Duration) (bool, error) {
	if len(epc) == 0 {
		return false, fmt.Errorf("%w: EPC must not be empty", ErrInvalidParameter)
	}
	if !d.Connected() {
		return false, ErrNotConnected
	}
	if timeout <= 0 {
		timeout = d.config.VerifyTimeout
	}
	want := make([]byte, len(epc))
	copy(want, epc)

	sub := d.Subscribe()
	defer sub.Close()

	wasPolling := d.Polling()
	if !wasPolling {
		if err := d.StartPollingContext(ctx); err != nil {
			return false, fmt.Errorf("verify EPC: %w", err)
		}
		defer func() {
			if err := d.StopPollingContext(ctx); err != nil {
				warnf("stop polling after EPC verify: %v", err)
			}
		}()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case r := <-sub.Events():
			if bytes.Equal(r.EPC, want) {
				return true, nil
			}
		case <-timer.C:
			return false, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

// withPollingSuspended runs fn with continuous polling paused. Polling is
// stopped once before fn and restarted once after, even when fn's operation
// fails. A device that was not polling runs fn directly.
func (d *Device) withPollingSuspended(ctx context.Context, fn func()) {
	if d.Polling() {
		if err := d.StopPollingContext(ctx); err != nil {
			warnf("suspend polling for exclusive op: %v", err)
		}
		defer func() {
			if err := d.StartPollingContext(ctx); err != nil {
				warnf("resume polling after exclusive op: %v", err)
			}
		}()
	}
	fn()
}

// runExclusive sends a tag operation and classifies the outcome. Timeouts
// retry up to the configured budget; the tag may simply have been mid-move.
// Explicit module errors and transport failures never retry.
func (d *Device) runExclusive(ctx context.Context, raw []byte, code byte) (OpStatus, byte, error) {
	attempts := 1 + d.config.TagOpRetries
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		f, err := d.sendAndAwait(ctx, raw, code, d.config.WriteTimeout)
		switch {
		case err == nil:
			if serr := responseStatusErr(f); serr != nil {
				var de *DeviceError
				if errors.As(serr, &de) {
					return OpDeviceError, de.Code, serr
				}
				return OpDeviceError, 0, serr
			}
			if f.Kind == frame.KindCommand {
				debugf("tag op 0x%02X acknowledged by echo only", code)
			}
			return OpSuccess, 0, nil
		case errors.Is(err, ErrTimeout):
			debugf("tag op 0x%02X attempt %d/%d timed out", code, attempt, attempts)
		default:
			return OpTransportError, 0, err
		}
	}
	return OpTimeout, 0, ErrTimeout
}
