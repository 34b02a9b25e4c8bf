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
	"errors"
	"fmt"
)

// Transport errors indicate problems with the byte pipe to the module.
var (
	// ErrTransportTimeout indicates a transport operation timed out
	ErrTransportTimeout = errors.New("transport timeout")
	// ErrTransportRead indicates a read operation failed
	ErrTransportRead = errors.New("transport read failed")
	// ErrTransportWrite indicates a write operation failed
	ErrTransportWrite = errors.New("transport write failed")
	// ErrCommunicationFailed indicates general communication failure
	ErrCommunicationFailed = errors.New("communication failed")
	// ErrFrameCorrupted indicates a received frame failed structural parsing
	ErrFrameCorrupted = errors.New("frame corrupted")
	// ErrChecksumMismatch indicates a frame arrived with a bad checksum
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// Device and protocol errors.
var (
	// ErrDeviceNotFound indicates no reader module was found
	ErrDeviceNotFound = errors.New("device not found")
	// ErrNotConnected indicates the device has not been connected yet, or
	// has been disconnected
	ErrNotConnected = errors.New("device not connected")
	// ErrTimeout indicates a command got no response within its deadline
	ErrTimeout = errors.New("operation timeout")
	// ErrRequestCanceled indicates a pending command was superseded by a
	// newer command before it resolved
	ErrRequestCanceled = errors.New("request canceled by newer command")
	// ErrTagNotFound indicates no tag answered in the RF field
	ErrTagNotFound = errors.New("tag not found")
	// ErrDataTooLarge indicates a payload exceeds what a frame can carry
	ErrDataTooLarge = errors.New("data too large for frame")
	// ErrInvalidParameter indicates an invalid argument from the caller
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ErrorType classifies errors for retry decisions.
type ErrorType int

const (
	// ErrorTypePermanent indicates an error that will not resolve by retrying
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient indicates a temporary error worth retrying
	ErrorTypeTransient
	// ErrorTypeTimeout indicates a timeout, retryable with backoff
	ErrorTypeTimeout
)

// TransportError wraps an error from the transport layer with context about
// the operation and port involved.
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a TransportError with retryability derived from
// the error type.
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewTimeoutError creates a retryable timeout TransportError.
func NewTimeoutError(op, port string) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       ErrTransportTimeout,
		Type:      ErrorTypeTimeout,
		Retryable: true,
	}
}

// NewFrameCorruptedError creates a retryable TransportError for a frame that
// failed structural parsing.
func NewFrameCorruptedError(op, port string) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       ErrFrameCorrupted,
		Type:      ErrorTypeTransient,
		Retryable: true,
	}
}

// NewDataTooLargeError creates a permanent TransportError for payloads that
// cannot fit in a frame.
func NewDataTooLargeError(op, port string) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       ErrDataTooLarge,
		Type:      ErrorTypePermanent,
		Retryable: false,
	}
}

// NewInvalidResponseError creates a transient TransportError for responses
// that do not match the expected shape.
func NewInvalidResponseError(msg, port string) *TransportError {
	return &TransportError{
		Op:        "response",
		Port:      port,
		Err:       fmt.Errorf("invalid response: %s", msg),
		Type:      ErrorTypeTransient,
		Retryable: true,
	}
}

// IsRetryable returns true if the error is worth retrying. TransportError
// values carry an explicit flag; sentinel errors are classified by identity.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrCommunicationFailed),
		errors.Is(err, ErrFrameCorrupted),
		errors.Is(err, ErrChecksumMismatch),
		errors.Is(err, ErrTimeout):
		return true
	default:
		return false
	}
}

// GetErrorType returns the classification of an error for retry and backoff
// decisions.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}

	switch {
	case errors.Is(err, ErrTransportTimeout), errors.Is(err, ErrTimeout):
		return ErrorTypeTimeout
	case errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrCommunicationFailed),
		errors.Is(err, ErrFrameCorrupted),
		errors.Is(err, ErrChecksumMismatch):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}

// DeviceError is an explicit failure status returned by the reader module in
// a response frame, as opposed to a transport or timeout problem.
type DeviceError struct {
	Code byte
}

// Error implements the error interface.
func (e *DeviceError) Error() string {
	return fmt.Sprintf("device error 0x%02X: %s", e.Code, deviceErrorText(e.Code))
}

// deviceErrorText maps documented module status codes to short descriptions.
func deviceErrorText(code byte) string {
	switch code {
	case 0x09:
		return "tag memory read failed"
	case 0x10:
		return "tag memory write failed"
	case 0x15:
		return "no tag in field"
	case 0x16:
		return "access denied, check access password"
	case 0x17:
		return "unsupported command"
	case 0x20:
		return "frequency hop failed"
	case 0xA0:
		return "tag memory locked"
	default:
		return "unknown module error"
	}
}
