// Package scheduler runs registered jobs on interval or daily triggers.
// Semantics per job: at most one running instance, missed firings coalesce
// into a single catch-up run, and a firing later than the misfire grace
// window is skipped rather than run late.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Result is the structured outcome of one job run. Job bodies never
// propagate errors; failures are recorded here.
type Result struct {
	Success  bool           `json:"success"`
	Duration time.Duration  `json:"duration"`
	Counts   map[string]int `json:"counts,omitempty"`
	Error    string         `json:"error,omitempty"`
}

type Trigger interface {
	Next(after time.Time) time.Time
	Description() string
}

// Interval fires at a fixed period.
type Interval time.Duration

func (i Interval) Next(after time.Time) time.Time {
	return after.Add(time.Duration(i))
}

func (i Interval) Description() string {
	return fmt.Sprintf("every %s", time.Duration(i))
}

// DailyAt fires once a day at the given UTC time.
type DailyAt struct {
	Hour   int
	Minute int
}

func (d DailyAt) Next(after time.Time) time.Time {
	after = after.UTC()
	next := time.Date(after.Year(), after.Month(), after.Day(), d.Hour, d.Minute, 0, 0, time.UTC)
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (d DailyAt) Description() string {
	return fmt.Sprintf("daily at %02d:%02d UTC", d.Hour, d.Minute)
}

type Job struct {
	ID      string
	Name    string
	Trigger Trigger
	Run     func(ctx context.Context) Result
}

// JobStatus is the read-only snapshot served by the admin endpoint.
type JobStatus struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Trigger    string    `json:"trigger"`
	NextRun    time.Time `json:"next_run"`
	Running    bool      `json:"running"`
	Runs       int       `json:"runs"`
	Skips      int       `json:"skips"`
	LastResult *Result   `json:"last_result,omitempty"`
}

type managedJob struct {
	job Job

	mu         sync.Mutex
	running    bool
	runs       int
	skips      int
	nextRun    time.Time
	lastResult *Result
}

type Scheduler struct {
	log   *logrus.Entry
	grace time.Duration
	now   func() time.Time

	mu      sync.Mutex
	jobs    map[string]*managedJob
	order   []string
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(logger *logrus.Logger, misfireGrace time.Duration) *Scheduler {
	return &Scheduler{
		log:   logger.WithField("component", "scheduler"),
		grace: misfireGrace,
		now:   time.Now,
		jobs:  make(map[string]*managedJob),
	}
}

func (s *Scheduler) Register(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("duplicate job id: %s", job.ID)
	}

	s.jobs[job.ID] = &managedJob{job: job}
	s.order = append(s.order, job.ID)
	return nil
}

// Start launches one goroutine per job. The context cancels all loops.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, id := range s.order {
		mj := s.jobs[id]
		s.wg.Add(1)
		go s.loop(runCtx, mj)

		s.log.WithFields(logrus.Fields{
			"job":     mj.job.ID,
			"trigger": mj.job.Trigger.Description(),
		}).Info("Job scheduled")
	}

	s.log.WithField("jobs", len(s.jobs)).Info("Scheduler started")
}

// Stop cancels all job loops and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.log.Info("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, mj *managedJob) {
	defer s.wg.Done()

	for {
		scheduled := mj.job.Trigger.Next(s.now())
		mj.mu.Lock()
		mj.nextRun = scheduled
		mj.mu.Unlock()

		timer := time.NewTimer(scheduled.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.fire(ctx, mj, scheduled)
		}
	}
}

// fire runs one scheduled invocation. A firing later than the grace window
// or overlapping a still-running instance is skipped.
func (s *Scheduler) fire(ctx context.Context, mj *managedJob, scheduled time.Time) {
	log := s.log.WithField("job", mj.job.ID)

	if s.grace > 0 && s.now().Sub(scheduled) > s.grace {
		mj.mu.Lock()
		mj.skips++
		mj.mu.Unlock()
		log.WithField("scheduled", scheduled).Warn("Misfired job run skipped")
		return
	}

	mj.mu.Lock()
	if mj.running {
		mj.skips++
		mj.mu.Unlock()
		log.Warn("Job still running, firing skipped")
		return
	}
	mj.running = true
	mj.runs++
	mj.mu.Unlock()

	result := runSafely(ctx, mj.job)

	mj.mu.Lock()
	mj.running = false
	mj.lastResult = &result
	mj.mu.Unlock()

	entry := log.WithFields(logrus.Fields{
		"success":  result.Success,
		"duration": result.Duration,
	})
	if result.Success {
		entry.Info("Job completed")
	} else {
		entry.WithField("error", result.Error).Error("Job failed")
	}
}

// RunNow fires a job outside its schedule. The run happens asynchronously;
// an error is returned only if the job is unknown or already running.
func (s *Scheduler) RunNow(ctx context.Context, id string) error {
	s.mu.Lock()
	mj, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job: %s", id)
	}

	mj.mu.Lock()
	if mj.running {
		mj.mu.Unlock()
		return fmt.Errorf("job %s is already running", id)
	}
	mj.running = true
	mj.runs++
	mj.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		result := runSafely(ctx, mj.job)
		mj.mu.Lock()
		mj.running = false
		mj.lastResult = &result
		mj.mu.Unlock()
	}()
	return nil
}

// Snapshot lists every registered job in registration order.
func (s *Scheduler) Snapshot() []JobStatus {
	s.mu.Lock()
	order := make([]string, len(s.order))
	copy(order, s.order)
	jobs := s.jobs
	s.mu.Unlock()

	statuses := make([]JobStatus, 0, len(order))
	for _, id := range order {
		mj := jobs[id]
		mj.mu.Lock()
		statuses = append(statuses, JobStatus{
			ID:         mj.job.ID,
			Name:       mj.job.Name,
			Trigger:    mj.job.Trigger.Description(),
			NextRun:    mj.nextRun,
			Running:    mj.running,
			Runs:       mj.runs,
			Skips:      mj.skips,
			LastResult: mj.lastResult,
		})
		mj.mu.Unlock()
	}

	return statuses
}

func runSafely(ctx context.Context, job Job) (result Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = Result{
				Success:  false,
				Duration: time.Since(start),
				Error:    fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	result = job.Run(ctx)
	result.Duration = time.Since(start)
	return result
}
