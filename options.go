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
	"time"
)

// Option is a functional option for configuring a Device
type Option func(*Device) error

// WithRetryConfig sets the retry configuration for the device
func WithRetryConfig(config *RetryConfig) Option {
	return func(d *Device) error {
		d.SetRetryConfig(config)
		return nil
	}
}

// WithTimeout sets the default timeout for command responses
func WithTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		return d.SetTimeout(timeout)
	}
}

// WithWriteTimeout sets the timeout for slow tag operations such as EPC
// writes and locks
func WithWriteTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: write timeout must be positive", ErrInvalidParameter)
		}
		d.config.WriteTimeout = timeout
		return nil
	}
}

// WithEchoGrace sets how long a command echo waits for a proper response
// before resolving the command itself. Raise it for modules that echo
// quickly but answer slowly.
func WithEchoGrace(grace time.Duration) Option {
	return func(d *Device) error {
		if grace <= 0 {
			return fmt.Errorf("%w: echo grace must be positive", ErrInvalidParameter)
		}
		d.config.EchoGrace = grace
		return nil
	}
}

// WithPollWindow sets how long a single poll gathers tag notices
func WithPollWindow(window time.Duration) Option {
	return func(d *Device) error {
		if window <= 0 {
			return fmt.Errorf("%w: poll window must be positive", ErrInvalidParameter)
		}
		d.config.PollWindow = window
		return nil
	}
}

// WithVerifyTimeout sets the default window for EPC verification
func WithVerifyTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: verify timeout must be positive", ErrInvalidParameter)
		}
		d.config.VerifyTimeout = timeout
		return nil
	}
}

// WithTagOpRetries sets how many extra attempts tag operations make after
// a timeout
func WithTagOpRetries(retries int) Option {
	return func(d *Device) error {
		if retries < 0 {
			return fmt.Errorf("%w: retries must not be negative", ErrInvalidParameter)
		}
		d.config.TagOpRetries = retries
		return nil
	}
}

// WithPollStartAck makes StartPolling wait for a confirmation instead of
// firing and forgetting, for firmware known to confirm the start command
func WithPollStartAck() Option {
	return func(d *Device) error {
		d.config.PollStartAck = true
		return nil
	}
}

// WithAccessPassword sets the Gen2 access password used by tag write and
// lock operations
func WithAccessPassword(password []byte) Option {
	return func(d *Device) error {
		return d.SetAccessPassword(password)
	}
}

// WithEnableLine attaches a hardware enable line to the device lifecycle:
// Connect raises it, Disconnect lowers it, Close releases it
func WithEnableLine(line EnableLine) Option {
	return func(d *Device) error {
		if line == nil {
			return fmt.Errorf("%w: enable line must not be nil", ErrInvalidParameter)
		}
		d.enable = line
		return nil
	}
}

// WithMaxRetries sets the maximum number of transport write attempts
func WithMaxRetries(maxAttempts int) Option {
	return func(device *Device) error {
		if device.config.RetryConfig == nil {
			device.config.RetryConfig = DefaultRetryConfig()
		}
		device.config.RetryConfig.MaxAttempts = maxAttempts
		if tr, ok := device.transport.(*TransportWithRetry); ok {
			tr.SetRetryConfig(device.config.RetryConfig)
		}
		return nil
	}
}

// WithRetryBackoff sets the initial backoff duration for transport retries
func WithRetryBackoff(initialBackoff time.Duration) Option {
	return func(device *Device) error {
		if device.config.RetryConfig == nil {
			device.config.RetryConfig = DefaultRetryConfig()
		}
		device.config.RetryConfig.InitialBackoff = initialBackoff
		if tr, ok := device.transport.(*TransportWithRetry); ok {
			tr.SetRetryConfig(device.config.RetryConfig)
		}
		return nil
	}
}
