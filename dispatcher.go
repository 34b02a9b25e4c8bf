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
	"time"

	"github.com/ZaparooProject/go-uhf/internal/frame"
)

// pendingState tracks where a pending command sits in its lifecycle.
type pendingState int

const (
	// stateAwaitingResponse means nothing has come back yet
	stateAwaitingResponse pendingState = iota
	// stateEchoGrace means the module reflected the command back and a
	// grace timer is running in case a proper response still follows
	stateEchoGrace
)

// commandResult is the terminal outcome of a pending command. Exactly one
// result is ever delivered per request.
type commandResult struct {
	frame *frame.Frame
	err   error
}

// pendingRequest is the single in-flight command slot. All fields are
// guarded by the device mutex.
type pendingRequest struct {
	done       chan commandResult
	echo       *frame.Frame
	graceTimer *time.Timer
	code       byte
	state      pendingState
	resolved   bool
}

// sendAndAwait transmits a prebuilt command frame and blocks until a
// correlated response or echo arrives, the timeout elapses, the context is
// canceled, or a newer command supersedes this one.
//
// Timeouts return ErrTimeout. Supersession returns ErrRequestCanceled. A
// transport write failure returns immediately with the write error and no
// timer ever starts.
func (d *Device) sendAndAwait(ctx context.Context, raw []byte, code byte, timeout time.Duration) (*frame.Frame, error) {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return nil, ErrNotConnected
	}
	if d.pending != nil {
		debugf("command 0x%02X supersedes pending 0x%02X", code, d.pending.code)
		d.resolveLocked(d.pending, commandResult{err: ErrRequestCanceled})
	}
	p := &pendingRequest{
		code:  code,
		state: stateAwaitingResponse,
		done:  make(chan commandResult, 1),
	}
	d.pending = p
	transport := d.transport
	d.mu.Unlock()

	if err := transport.Write(raw); err != nil {
		d.mu.Lock()
		if d.pending == p {
			d.pending = nil
		}
		p.resolved = true
		d.mu.Unlock()
		return nil, fmt.Errorf("write command 0x%02X: %w", code, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-p.done:
		return res.frame, res.err
	case <-timer.C:
		return d.expirePending(p, ErrTimeout)
	case <-ctx.Done():
		return d.expirePending(p, ctx.Err())
	}
}

// expirePending finishes a request whose wait ended without a delivered
// result. If a resolution raced in just before the lock was taken, that
// resolution wins.
func (d *Device) expirePending(p *pendingRequest, cause error) (*frame.Frame, error) {
	d.mu.Lock()
	if p.resolved {
		d.mu.Unlock()
		res := <-p.done
		return res.frame, res.err
	}
	p.resolved = true
	if p.graceTimer != nil {
		p.graceTimer.Stop()
		p.graceTimer = nil
	}
	if d.pending == p {
		d.pending = nil
	}
	d.mu.Unlock()
	return nil, cause
}

// resolveLocked delivers the terminal result for p and frees the slot. It
// is a no-op for an already resolved request, which keeps resolution
// exactly-once under races between responses, echoes, timers and
// supersession.
func (d *Device) resolveLocked(p *pendingRequest, res commandResult) {
	if p.resolved {
		return
	}
	p.resolved = true
	if p.graceTimer != nil {
		p.graceTimer.Stop()
		p.graceTimer = nil
	}
	p.done <- res
	if d.pending == p {
		d.pending = nil
	}
}

// handleFrameLocked routes one decoded frame. Tag notices are returned for
// publication to poll subscribers; responses and echoes resolve or advance
// the pending command. Anything uncorrelated is logged and dropped.
func (d *Device) handleFrameLocked(f *frame.Frame) []TagPollResult {
	switch f.Kind {
	case frame.KindNotice:
		if f.Command == cmdSinglePoll || f.Command == cmdMultiPoll {
			if result, ok := decodeTagNotice(f.Params); ok {
				return []TagPollResult{result}
			}
			debugf("dropping malformed tag notice: % X", f.Params)
			return nil
		}
		debugf("dropping unhandled notice 0x%02X", f.Command)

	case frame.KindResponse:
		p := d.pending
		if p != nil && p.code == f.Command {
			d.resolveLocked(p, commandResult{frame: f})
			return nil
		}
		debugf("dropping unexpected response 0x%02X", f.Command)

	case frame.KindCommand:
		// The module reflected our own command back. Some firmware does
		// this instead of answering, others echo first and answer after.
		p := d.pending
		if p != nil && p.code == f.Command {
			d.armEchoGraceLocked(p, f)
			return nil
		}
		debugf("dropping echo 0x%02X with no pending command", f.Command)
	}
	return nil
}

// responseStatusErr interprets a resolved command frame as a status report.
// A response whose first parameter byte is a nonzero status becomes a
// DeviceError. An echo carries no status and counts as acceptance.
func responseStatusErr(f *frame.Frame) error {
	if f == nil || f.Kind != frame.KindResponse {
		return nil
	}
	if len(f.Params) > 0 && f.Params[0] != 0x00 {
		return &DeviceError{Code: f.Params[0]}
	}
	return nil
}

// armEchoGraceLocked records an echo for the pending request and starts the
// grace window. A proper response arriving inside the window still wins; if
// the window elapses first the echo becomes the result.
func (d *Device) armEchoGraceLocked(p *pendingRequest, echo *frame.Frame) {
	p.echo = echo
	p.state = stateEchoGrace
	if p.graceTimer != nil {
		p.graceTimer.Stop()
	}
	p.graceTimer = time.AfterFunc(d.config.EchoGrace, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.pending != p || p.resolved {
			return
		}
		debugf("echo grace elapsed, resolving command 0x%02X with echo", p.code)
		d.resolveLocked(p, commandResult{frame: p.echo})
	})
}
