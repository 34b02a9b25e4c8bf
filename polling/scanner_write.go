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

package polling

import (
	"context"
	"fmt"
	"time"

	uhf "github.com/ZaparooProject/go-uhf"
)

// WriteToNextTag waits for the next tag to enter the field and executes the
// operation against it with monitoring paused. It blocks until the
// operation completes, the timeout expires or ctx is cancelled. A timeout
// of zero or less uses the configured WriteTimeout.
func (s *Scanner) WriteToNextTag(
	ctx context.Context,
	timeout time.Duration,
	operation func(ctx context.Context, device *uhf.Device, tag *TagState) error,
) error {
	if !s.running.Load() {
		return ErrScannerNotRunning
	}
	if timeout <= 0 {
		timeout = s.config.WriteTimeout
	}

	// Serialize write requests to prevent concurrent writes
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	if s.pendingWrite.Load() != nil {
		return ErrWriteAlreadyPending
	}

	writeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := make(chan error, 1)
	req := &WriteRequest{
		operation: operation,
		result:    result,
		ctx:       writeCtx,
		createdAt: time.Now(),
	}

	s.pendingWrite.Store(req)
	defer s.pendingWrite.Store(nil)

	select {
	case err := <-result:
		return err
	case <-writeCtx.Done():
		return writeCtx.Err()
	}
}

// WriteEPCToNextTag waits for the next tag and rewrites its EPC, verifying
// the new identity afterwards.
func (s *Scanner) WriteEPCToNextTag(ctx context.Context, timeout time.Duration, newEPC []byte) error {
	return s.WriteToNextTag(ctx, timeout,
		func(ctx context.Context, device *uhf.Device, _ *TagState) error {
			result, err := device.WriteEPCContext(ctx, newEPC)
			if err != nil {
				return err
			}
			if result.Err != nil {
				return result.Err
			}
			ok, err := device.VerifyEPCContext(ctx, newEPC, 0)
			if err != nil {
				return fmt.Errorf("verify rewritten EPC: %w", err)
			}
			if !ok {
				return ErrVerifyFailed
			}
			return nil
		})
}

// processPendingWrites handles queued write operations when tags are
// detected. Called internally by the monitoring loop.
func (s *Scanner) processPendingWrites(tag *TagState) {
	req := s.pendingWrite.Load()
	if req == nil {
		return
	}

	// Check if the request is still valid
	select {
	case <-req.ctx.Done():
		s.sendWriteResult(req, req.ctx.Err())
		return
	default:
	}

	err := s.monitor.WriteToTag(req.ctx, tag, req.operation)
	s.sendWriteResult(req, err)
}

// failPendingWrite resolves any queued write with the scanner's exit error
func (s *Scanner) failPendingWrite(err error) {
	if req := s.pendingWrite.Load(); req != nil {
		s.sendWriteResult(req, err)
	}
}

// sendWriteResult safely sends the result of a write operation back to the
// waiting goroutine
func (*Scanner) sendWriteResult(req *WriteRequest, err error) {
	select {
	case req.result <- err:
	default:
	}
}
