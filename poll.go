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
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TagPollResult is a single tag sighting reported by the module during an
// inventory round.
type TagPollResult struct {
	// EPC is the tag's EPC, most significant byte first
	EPC []byte
	// PC is the Gen2 protocol control word; its top five bits encode the
	// EPC length in words
	PC uint16
	// RSSI is the signal strength of the sighting in dBm
	RSSI int8
}

// EPCHex returns the EPC as an uppercase hex string, the form most EPC
// databases and MQTT consumers expect.
func (r TagPollResult) EPCHex() string {
	return strings.ToUpper(hex.EncodeToString(r.EPC))
}

// decodeTagNotice decodes a tag notice payload of the form
// [RSSI][PC hi][PC lo][EPC...]. The EPC length comes from the PC word; when
// the PC claims more bytes than the payload holds, everything after the PC
// is taken as the EPC. Payloads too short to hold RSSI and PC are rejected.
func decodeTagNotice(params []byte) (TagPollResult, bool) {
	if len(params) < 3 {
		return TagPollResult{}, false
	}
	rssi := int8(params[0])
	pc := uint16(params[1])<<8 | uint16(params[2])
	rest := params[3:]

	epcLen := int(pc>>11) * 2
	if epcLen <= 0 || epcLen > len(rest) {
		epcLen = len(rest)
	}
	epc := make([]byte, epcLen)
	copy(epc, rest[:epcLen])

	return TagPollResult{EPC: epc, PC: pc, RSSI: rssi}, true
}

// pollSubscriptionBuffer is the per-subscriber channel depth. A subscriber
// that falls further behind loses sightings rather than stalling the
// receive path.
const pollSubscriptionBuffer = 16

// PollSubscription is one receiver of tag sightings. Every subscriber gets
// every sighting; delivery to a full subscriber is dropped.
type PollSubscription struct {
	device *Device
	ch     chan TagPollResult
	closed bool
}

// Events returns the channel tag sightings arrive on. The channel closes
// when the subscription is closed.
func (s *PollSubscription) Events() <-chan TagPollResult {
	return s.ch
}

// Close detaches the subscription from the device. Close is idempotent.
func (s *PollSubscription) Close() {
	d := s.device
	d.mu.Lock()
	defer d.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	delete(d.subs, s)
	close(s.ch)
}

// Subscribe registers a new tag sighting subscriber. Subscriptions can be
// created at any time, including before polling starts.
func (d *Device) Subscribe() *PollSubscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	sub := &PollSubscription{
		device: d,
		ch:     make(chan TagPollResult, pollSubscriptionBuffer),
	}
	d.subs[sub] = struct{}{}
	return sub
}

// publishLocked fans a sighting out to all subscribers without blocking.
func (d *Device) publishLocked(result TagPollResult) {
	for sub := range d.subs {
		select {
		case sub.ch <- result:
		default:
			debugf("poll subscriber full, dropping tag %s", result.EPCHex())
		}
	}
}

// StartPolling puts the module into continuous inventory mode. See
// StartPollingContext.
func (d *Device) StartPolling() error {
	return d.StartPollingContext(context.Background())
}

// StartPollingContext puts the module into continuous inventory mode. By
// default the start command is fire-and-forget, since most firmware starts
// streaming tag notices without confirming; with PollStartAck set the start
// waits for a confirmation like any other command. Starting while already
// polling is a no-op.
func (d *Device) StartPollingContext(ctx context.Context) error {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return ErrNotConnected
	}
	if d.polling {
		d.mu.Unlock()
		return nil
	}
	ack := d.config.PollStartAck
	timeout := d.config.Timeout
	transport := d.transport
	d.mu.Unlock()

	raw := buildMultiPollCommand(0)
	if ack {
		f, err := d.sendAndAwait(ctx, raw, cmdMultiPoll, timeout)
		if err != nil {
			return fmt.Errorf("start polling: %w", err)
		}
		if serr := responseStatusErr(f); serr != nil {
			return fmt.Errorf("start polling: %w", serr)
		}
	} else if err := transport.Write(raw); err != nil {
		return fmt.Errorf("start polling: %w", err)
	}

	d.mu.Lock()
	d.polling = true
	d.mu.Unlock()
	debugf("continuous polling started")
	return nil
}

// StopPolling takes the module out of continuous inventory mode. See
// StopPollingContext.
func (d *Device) StopPolling() error {
	return d.StopPollingContext(context.Background())
}

// StopPollingContext sends the stop command through the normal correlated
// path and waits briefly for confirmation. The polling flag drops whether
// or not the module confirms; a stop that goes unanswered usually means the
// module already stopped, and must not wedge later tag operations. An
// unacknowledged stop is therefore not an error.
func (d *Device) StopPollingContext(ctx context.Context) error {
	if !d.Connected() {
		return ErrNotConnected
	}
	defer func() {
		d.mu.Lock()
		d.polling = false
		d.mu.Unlock()
	}()

	f, err := d.sendAndAwait(ctx, buildStopMultiPollCommand(), cmdStopMultiPoll, d.config.Timeout)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			debugf("stop polling unacknowledged, assuming stopped")
			return nil
		}
		return fmt.Errorf("stop polling: %w", err)
	}
	if serr := responseStatusErr(f); serr != nil {
		return fmt.Errorf("stop polling: %w", serr)
	}
	debugf("continuous polling stopped")
	return nil
}

// SinglePoll runs one inventory round. See SinglePollContext.
func (d *Device) SinglePoll() ([]TagPollResult, error) {
	return d.SinglePollContext(context.Background())
}

// SinglePollContext fires one inventory round and gathers the tag notices
// that arrive within the poll window. An empty field yields an empty slice
// and no error.
func (d *Device) SinglePollContext(ctx context.Context) ([]TagPollResult, error) {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return nil, ErrNotConnected
	}
	window := d.config.PollWindow
	transport := d.transport
	d.mu.Unlock()

	sub := d.Subscribe()
	defer sub.Close()

	if err := transport.Write(buildSinglePollCommand()); err != nil {
		return nil, fmt.Errorf("single poll: %w", err)
	}

	timer := time.NewTimer(window)
	defer timer.Stop()

	var results []TagPollResult
	for {
		select {
		case r := <-sub.Events():
			results = append(results, r)
		case <-timer.C:
			return results, nil
		case <-ctx.Done():
			return results, ctx.Err()
		}
	}
}
