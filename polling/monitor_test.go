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
	"errors"
	"sync"
	"testing"
	"time"

	uhf "github.com/ZaparooProject/go-uhf"
	testutil "github.com/ZaparooProject/go-uhf/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createMockDeviceWithTransport creates a device with mock transport for testing
func createMockDeviceWithTransport(t *testing.T) (*uhf.Device, *uhf.MockTransport) {
	mockTransport := uhf.NewMockTransport()
	device, err := uhf.New(mockTransport)
	require.NoError(t, err)
	return device, mockTransport
}

// createTestTagState creates a tag state as the monitor would report it
func createTestTagState() *TagState {
	now := time.Now()
	return &TagState{
		EPC:       "E2000017220B014415805BDC",
		PC:        0x3000,
		RSSI:      -55,
		FirstSeen: now,
		LastSeen:  now,
		SeenCount: 1,
	}
}

// startMonitorLoop connects the device, scripts the stop acknowledgement
// and runs the monitor loop in the background. The returned channel yields
// the loop's exit error once cancel is called.
func startMonitorLoop(
	t *testing.T, device *uhf.Device, mock *uhf.MockTransport, monitor *Monitor,
) (context.CancelFunc, <-chan error) {
	require.NoError(t, device.Connect())
	mock.SetResponse(testutil.CmdStopMultiPoll,
		testutil.BuildStatusResponse(testutil.CmdStopMultiPoll, testutil.StatusOK))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- monitor.Start(ctx)
	}()

	// The loop has subscribed once the start command went out
	require.Eventually(t, func() bool {
		return mock.GetCallCount(testutil.CmdMultiPoll) > 0
	}, time.Second, 5*time.Millisecond)

	return cancel, errCh
}

func TestNewMonitor(t *testing.T) {
	t.Parallel()
	device, _ := createMockDeviceWithTransport(t)

	t.Run("WithDefaultConfig", func(t *testing.T) {
		t.Parallel()
		monitor := NewMonitor(device, nil)

		assert.NotNil(t, monitor)
		assert.Equal(t, device, monitor.device)
		assert.NotNil(t, monitor.config)
		assert.NotNil(t, monitor.field)
		assert.Equal(t, 2*time.Second, monitor.config.RemovalTimeout)
		assert.Equal(t, 250*time.Millisecond, monitor.config.SweepInterval)
		assert.False(t, monitor.isPaused.Load())
	})

	t.Run("WithCustomConfig", func(t *testing.T) {
		t.Parallel()
		config := &Config{
			RemovalTimeout: 500 * time.Millisecond,
			SweepInterval:  50 * time.Millisecond,
		}
		monitor := NewMonitor(device, config)

		assert.NotNil(t, monitor)
		assert.Equal(t, config, monitor.config)
		assert.Equal(t, 500*time.Millisecond, monitor.config.RemovalTimeout)
	})
}

func TestMonitor_PauseResume(t *testing.T) {
	t.Parallel()

	t.Run("InitiallyNotPaused", func(t *testing.T) {
		t.Parallel()
		device, _ := createMockDeviceWithTransport(t)
		monitor := NewMonitor(device, nil)
		assert.False(t, monitor.isPaused.Load())
	})

	t.Run("PauseOperation", func(t *testing.T) {
		t.Parallel()
		device, _ := createMockDeviceWithTransport(t)
		monitor := NewMonitor(device, nil)
		monitor.Pause()
		assert.True(t, monitor.isPaused.Load())

		// Pausing again should be idempotent
		monitor.Pause()
		assert.True(t, monitor.isPaused.Load())
	})

	t.Run("ResumeOperation", func(t *testing.T) {
		t.Parallel()
		device, _ := createMockDeviceWithTransport(t)
		monitor := NewMonitor(device, nil)
		monitor.Pause() // First pause it
		monitor.Resume()
		assert.False(t, monitor.isPaused.Load())

		// Resuming again should be idempotent
		monitor.Resume()
		assert.False(t, monitor.isPaused.Load())
	})

	t.Run("ResumeRefreshesField", func(t *testing.T) {
		t.Parallel()
		device, _ := createMockDeviceWithTransport(t)
		monitor := NewMonitor(device, nil)

		stale := time.Now().Add(-time.Minute)
		monitor.field.Observe(uhf.TagPollResult{EPC: testutil.TestEPC, PC: 0x3000, RSSI: -50}, stale)

		monitor.Pause()
		monitor.Resume()

		// The pause gap must not count toward the removal timeout
		snapshot := monitor.Snapshot()
		require.Len(t, snapshot, 1)
		assert.WithinDuration(t, time.Now(), snapshot[0].LastSeen, time.Second)
	})
}

func TestMonitor_ConcurrentPauseResume(t *testing.T) {
	t.Parallel()
	device, _ := createMockDeviceWithTransport(t)
	monitor := NewMonitor(device, nil)

	// Test concurrent pause/resume operations
	var wg sync.WaitGroup
	iterations := 100

	// Start multiple goroutines doing pause/resume
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				monitor.Pause()
				time.Sleep(time.Microsecond)
				monitor.Resume()
			}
		}()
	}

	wg.Wait()

	// Should end up in a consistent state
	assert.False(t, monitor.isPaused.Load())
}

func TestMonitor_WriteToTag(t *testing.T) {
	t.Parallel()

	t.Run("SuccessfulWrite", func(t *testing.T) {
		t.Parallel()
		device, _ := createMockDeviceWithTransport(t)
		monitor := NewMonitor(device, nil)

		tag := createTestTagState()
		writeCallCount := 0

		err := monitor.WriteToTag(context.Background(), tag,
			func(_ context.Context, dev *uhf.Device, got *TagState) error {
				writeCallCount++
				assert.Equal(t, device, dev)
				assert.Equal(t, tag.EPC, got.EPC)
				return nil
			})

		require.NoError(t, err)
		assert.Equal(t, 1, writeCallCount)
		assert.False(t, monitor.isPaused.Load()) // Should be resumed after write
	})

	t.Run("WriteError", func(t *testing.T) {
		t.Parallel()
		device, _ := createMockDeviceWithTransport(t)
		monitor := NewMonitor(device, nil)

		tag := createTestTagState()
		expectedErr := errors.New("write failed")

		err := monitor.WriteToTag(context.Background(), tag,
			func(_ context.Context, _ *uhf.Device, _ *TagState) error {
				return expectedErr
			})

		require.Error(t, err)
		assert.Equal(t, expectedErr, err)
		assert.False(t, monitor.isPaused.Load()) // Should be resumed even on error
	})
}

func TestMonitor_ConcurrentWrites(t *testing.T) {
	t.Parallel()
	device, _ := createMockDeviceWithTransport(t)
	monitor := NewMonitor(device, nil)

	tag := createTestTagState()

	var writeOrder []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	numWrites := 5

	// Start multiple concurrent writes
	for i := 0; i < numWrites; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			err := monitor.WriteToTag(context.Background(), tag,
				func(_ context.Context, _ *uhf.Device, _ *TagState) error {
					mu.Lock()
					writeOrder = append(writeOrder, id)
					mu.Unlock()

					// Simulate write time
					time.Sleep(10 * time.Millisecond)
					return nil
				})

			assert.NoError(t, err)
		}(i)
	}

	wg.Wait()

	// All writes should have completed
	assert.Len(t, writeOrder, numWrites)
	assert.False(t, monitor.isPaused.Load())

	// Verify writes were serialized (no overlapping)
	// Each write should complete before the next starts due to mutex
	for i := 0; i < numWrites; i++ {
		assert.Contains(t, writeOrder, i)
	}
}

func TestMonitor_WriteToTagPausesBehavior(t *testing.T) {
	t.Parallel()
	device, _ := createMockDeviceWithTransport(t)
	monitor := NewMonitor(device, nil)

	tag := createTestTagState()

	var pauseDetected, resumeDetected bool
	var wg sync.WaitGroup
	wg.Add(1)

	// Monitor pause state changes
	go func() {
		defer wg.Done()
		for {
			if monitor.isPaused.Load() {
				pauseDetected = true
			}
			time.Sleep(time.Millisecond)

			// Break when write is complete
			if pauseDetected && !monitor.isPaused.Load() {
				resumeDetected = true
				break
			}
		}
	}()

	err := monitor.WriteToTag(context.Background(), tag,
		func(_ context.Context, _ *uhf.Device, _ *TagState) error {
			// During write, monitor should be paused
			assert.True(t, monitor.isPaused.Load())
			time.Sleep(20 * time.Millisecond) // Simulate write operation
			return nil
		})

	wg.Wait()

	require.NoError(t, err)
	assert.True(t, pauseDetected, "Monitor should have been paused during write")
	assert.True(t, resumeDetected, "Monitor should have been resumed after write")
	assert.False(t, monitor.isPaused.Load(), "Monitor should be resumed after write")
}

func TestMonitor_WriteToTagErrorHandling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		writeFunc   func(context.Context, *uhf.Device, *TagState) error
		name        string
		expectError bool
	}{
		{
			name:        "WriteSuccess",
			expectError: false,
			writeFunc: func(_ context.Context, _ *uhf.Device, _ *TagState) error {
				return nil
			},
		},
		{
			name:        "WriteFailure",
			expectError: true,
			writeFunc: func(_ context.Context, _ *uhf.Device, _ *TagState) error {
				return errors.New("simulated write error")
			},
		},
		{
			name:        "WritePanic",
			expectError: true,
			writeFunc: func(_ context.Context, _ *uhf.Device, _ *TagState) error {
				panic("simulated panic")
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Create separate monitor instance for each subtest to avoid race conditions
			device, _ := createMockDeviceWithTransport(t)
			monitor := NewMonitor(device, nil)

			tag := createTestTagState()

			err := executeWriteWithPanicRecovery(monitor, tag, tt.writeFunc)

			if tt.expectError {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			// Monitor should always be resumed after write, even on error
			assert.False(t, monitor.isPaused.Load())
		})
	}
}

func executeWriteWithPanicRecovery(
	monitor *Monitor,
	tag *TagState,
	writeFunc func(context.Context, *uhf.Device, *TagState) error,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("panic occurred")
		}
	}()
	return monitor.WriteToTag(context.Background(), tag, writeFunc)
}

func TestMonitor_DetectsAndRemovesTags(t *testing.T) {
	t.Parallel()
	device, mock := createMockDeviceWithTransport(t)
	monitor := NewMonitor(device, &Config{
		RemovalTimeout: 150 * time.Millisecond,
		SweepInterval:  25 * time.Millisecond,
	})

	detected := make(chan TagState, 4)
	seen := make(chan TagState, 16)
	removed := make(chan TagState, 4)
	monitor.OnTagDetected = func(tag *TagState) { detected <- *tag }
	monitor.OnTagSeen = func(tag *TagState) { seen <- *tag }
	monitor.OnTagRemoved = func(tag *TagState) { removed <- *tag }

	cancel, errCh := startMonitorLoop(t, device, mock, monitor)
	defer cancel()

	notice := testutil.BuildTagNotice(-55, testutil.PCForEPC(testutil.TestEPC), testutil.TestEPC)
	mock.Inject(notice)

	select {
	case tag := <-detected:
		assert.Equal(t, "E2000017220B014415805BDC", tag.EPC)
		assert.Equal(t, 1, tag.SeenCount)
		assert.Equal(t, int8(-55), tag.RSSI)
	case <-time.After(time.Second):
		t.Fatal("tag detection callback never fired")
	}

	// A repeat sighting of a known tag fires the seen callback instead
	mock.Inject(notice)
	select {
	case tag := <-seen:
		assert.Equal(t, 2, tag.SeenCount)
	case <-time.After(time.Second):
		t.Fatal("repeat sighting callback never fired")
	}

	snapshot := monitor.Snapshot()
	require.Len(t, snapshot, 1)

	// Left unseen, the tag must expire out of the field
	select {
	case tag := <-removed:
		assert.Equal(t, "E2000017220B014415805BDC", tag.EPC)
	case <-time.After(2 * time.Second):
		t.Fatal("tag removal callback never fired")
	}
	assert.Empty(t, monitor.Snapshot())

	metrics := monitor.GetMetrics()
	assert.GreaterOrEqual(t, metrics.Sightings, int64(2))
	assert.Equal(t, int64(1), metrics.TagsDetected)
	assert.Equal(t, int64(1), metrics.TagsRemoved)

	cancel()
	err := <-errCh
	require.ErrorIs(t, err, context.Canceled)

	// Shutdown must have told the module to stop streaming
	assert.Equal(t, 1, mock.GetCallCount(testutil.CmdStopMultiPoll))
}

func TestMonitor_PauseSuppressesSightings(t *testing.T) {
	t.Parallel()
	device, mock := createMockDeviceWithTransport(t)
	monitor := NewMonitor(device, &Config{
		RemovalTimeout: time.Second,
		SweepInterval:  25 * time.Millisecond,
	})

	detected := make(chan TagState, 4)
	monitor.OnTagDetected = func(tag *TagState) { detected <- *tag }

	cancel, errCh := startMonitorLoop(t, device, mock, monitor)
	defer cancel()

	monitor.Pause()
	mock.Inject(testutil.BuildTagNotice(-55, testutil.PCForEPC(testutil.TestEPC), testutil.TestEPC))

	select {
	case <-detected:
		t.Fatal("paused monitor must not process sightings")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, int64(0), monitor.GetMetrics().Sightings)

	monitor.Resume()
	mock.Inject(testutil.BuildTagNotice(-60, testutil.PCForEPC(testutil.TestEPCAlt), testutil.TestEPCAlt))

	select {
	case tag := <-detected:
		assert.Equal(t, "E28068940000500E88C42D5B", tag.EPC)
	case <-time.After(time.Second):
		t.Fatal("resumed monitor must process sightings again")
	}

	cancel()
	<-errCh
}

func TestMonitor_CloseClosesDevice(t *testing.T) {
	t.Parallel()
	device, mock := createMockDeviceWithTransport(t)
	monitor := NewMonitor(device, nil)

	require.NoError(t, monitor.Close())
	assert.False(t, mock.IsConnected())
}
