package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestIntervalNext(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	trigger := Interval(15 * time.Minute)

	assert.Equal(t, now.Add(15*time.Minute), trigger.Next(now))
	assert.Equal(t, "every 15m0s", trigger.Description())
}

func TestDailyAtNext(t *testing.T) {
	trigger := DailyAt{Hour: 2}

	before := time.Date(2026, 8, 31, 1, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 31, 2, 0, 0, 0, time.UTC), trigger.Next(before))

	after := time.Date(2026, 8, 31, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 9, 1, 2, 0, 0, 0, time.UTC), trigger.Next(after))

	assert.Equal(t, "daily at 02:00 UTC", trigger.Description())
}

func TestRegisterDuplicateID(t *testing.T) {
	s := New(testLogger(), 5*time.Minute)
	job := Job{ID: "a", Name: "A", Trigger: Interval(time.Minute), Run: func(context.Context) Result { return Result{Success: true} }}

	require.NoError(t, s.Register(job))
	assert.Error(t, s.Register(job))
}

func TestFireSkipsWhileRunning(t *testing.T) {
	s := New(testLogger(), 0)
	runs := 0
	require.NoError(t, s.Register(Job{
		ID:      "busy",
		Name:    "Busy",
		Trigger: Interval(time.Minute),
		Run: func(context.Context) Result {
			runs++
			return Result{Success: true}
		},
	}))

	mj := s.jobs["busy"]
	mj.mu.Lock()
	mj.running = true
	mj.mu.Unlock()

	s.fire(context.Background(), mj, time.Now())

	assert.Equal(t, 0, runs, "firing must be skipped, not queued")
	mj.mu.Lock()
	defer mj.mu.Unlock()
	assert.Equal(t, 1, mj.skips)
	assert.Equal(t, 0, mj.runs)
}

func TestFireSkipsBeyondMisfireGrace(t *testing.T) {
	s := New(testLogger(), 5*time.Minute)
	runs := 0
	require.NoError(t, s.Register(Job{
		ID:      "late",
		Name:    "Late",
		Trigger: Interval(time.Minute),
		Run: func(context.Context) Result {
			runs++
			return Result{Success: true}
		},
	}))

	mj := s.jobs["late"]
	s.fire(context.Background(), mj, time.Now().Add(-10*time.Minute))

	assert.Equal(t, 0, runs)
	mj.mu.Lock()
	defer mj.mu.Unlock()
	assert.Equal(t, 1, mj.skips)
}

func TestFireWithinGraceRuns(t *testing.T) {
	s := New(testLogger(), 5*time.Minute)
	runs := 0
	require.NoError(t, s.Register(Job{
		ID:      "ontime",
		Name:    "On Time",
		Trigger: Interval(time.Minute),
		Run: func(context.Context) Result {
			runs++
			return Result{Success: true, Counts: map[string]int{"widgets": 3}}
		},
	}))

	mj := s.jobs["ontime"]
	s.fire(context.Background(), mj, time.Now().Add(-time.Minute))

	assert.Equal(t, 1, runs)
	mj.mu.Lock()
	defer mj.mu.Unlock()
	require.NotNil(t, mj.lastResult)
	assert.True(t, mj.lastResult.Success)
	assert.Equal(t, 3, mj.lastResult.Counts["widgets"])
}

func TestJobPanicBecomesFailedResult(t *testing.T) {
	s := New(testLogger(), 0)
	require.NoError(t, s.Register(Job{
		ID:      "panicky",
		Name:    "Panicky",
		Trigger: Interval(time.Minute),
		Run: func(context.Context) Result {
			panic("boom")
		},
	}))

	mj := s.jobs["panicky"]
	s.fire(context.Background(), mj, time.Now())

	mj.mu.Lock()
	defer mj.mu.Unlock()
	require.NotNil(t, mj.lastResult)
	assert.False(t, mj.lastResult.Success)
	assert.Contains(t, mj.lastResult.Error, "panic: boom")
	assert.False(t, mj.running, "slot must be released after a panic")
}

func TestRunNow(t *testing.T) {
	s := New(testLogger(), 5*time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, s.Register(Job{
		ID:      "manual",
		Name:    "Manual",
		Trigger: Interval(time.Hour),
		Run: func(context.Context) Result {
			close(started)
			<-release
			return Result{Success: true}
		},
	}))

	require.NoError(t, s.RunNow(context.Background(), "manual"))
	<-started

	// A second trigger while running is refused.
	assert.Error(t, s.RunNow(context.Background(), "manual"))
	assert.Error(t, s.RunNow(context.Background(), "unknown"))

	close(release)
	s.wg.Wait()

	mj := s.jobs["manual"]
	mj.mu.Lock()
	defer mj.mu.Unlock()
	assert.Equal(t, 1, mj.runs)
	assert.True(t, mj.lastResult.Success)
}

func TestSnapshotOrderAndContents(t *testing.T) {
	s := New(testLogger(), 5*time.Minute)
	noop := func(context.Context) Result { return Result{Success: true} }

	require.NoError(t, s.Register(Job{ID: "b_job", Name: "B", Trigger: Interval(time.Minute), Run: noop}))
	require.NoError(t, s.Register(Job{ID: "a_job", Name: "A", Trigger: DailyAt{Hour: 2}, Run: noop}))

	snapshot := s.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "b_job", snapshot[0].ID, "registration order preserved")
	assert.Equal(t, "every 1m0s", snapshot[0].Trigger)
	assert.Equal(t, "daily at 02:00 UTC", snapshot[1].Trigger)
}

func TestSchedulerStartStop(t *testing.T) {
	s := New(testLogger(), 5*time.Minute)

	var mu sync.Mutex
	runs := 0
	require.NoError(t, s.Register(Job{
		ID:      "ticker",
		Name:    "Ticker",
		Trigger: Interval(10 * time.Millisecond),
		Run: func(context.Context) Result {
			mu.Lock()
			runs++
			mu.Unlock()
			return Result{Success: true}
		},
	}))

	s.Start(context.Background())
	time.Sleep(60 * time.Millisecond)
	s.Stop()

	mu.Lock()
	ran := runs
	mu.Unlock()
	assert.Greater(t, ran, 0, "job should have fired at least once")

	snapshot := s.Snapshot()
	require.Len(t, snapshot, 1)
	assert.False(t, snapshot[0].NextRun.IsZero())
}

func TestRunSafelyRecordsDuration(t *testing.T) {
	job := Job{
		ID: "slow",
		Run: func(context.Context) Result {
			time.Sleep(10 * time.Millisecond)
			return Result{Success: false, Error: errors.New("nope").Error()}
		},
	}

	result := runSafely(context.Background(), job)
	assert.False(t, result.Success)
	assert.GreaterOrEqual(t, result.Duration, 10*time.Millisecond)
}
