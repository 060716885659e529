// Package scheduler runs jobs on standard cron expressions.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dbsmedya/goingest/internal/logger"
)

// Scheduler wraps a cron runner. A job never overlaps itself: a tick that
// fires while the previous run is still going is skipped.
type Scheduler struct {
	cron    *cron.Cron
	logger  *logger.Logger
	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// New creates a stopped scheduler.
func New(log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewNop()
	}
	cl := cronLogger{log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  log,
		entries: make(map[string]cron.EntryID),
	}
}

// Add registers fn under job on a standard 5-field expression (descriptors
// such as @hourly and @every 5m are accepted).
func (s *Scheduler) Add(job, expr string, fn func()) error {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", expr, job, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[job]; exists {
		return fmt.Errorf("job %s is already scheduled", job)
	}

	log := s.logger.WithJob(job)
	s.entries[job] = s.cron.Schedule(schedule, cron.FuncJob(func() {
		start := time.Now()
		log.Info("Scheduled run starting")
		fn()
		log.Infow("Scheduled run finished", "duration", time.Since(start))
	}))
	log.Infow("Job scheduled", "schedule", expr)
	return nil
}

// Jobs returns the scheduled job names, sorted.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Next returns the next activation of job.
func (s *Scheduler) Next(job string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[job]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	entry := s.cron.Entry(id)
	if entry.Next.IsZero() {
		// not started yet
		return entry.Schedule.Next(time.Now()), true
	}
	return entry.Next, true
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler. The returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunNow runs job once on the calling goroutine, outside its schedule. It is
// skipped like a tick when the job is already running.
func (s *Scheduler) RunNow(job string) error {
	s.mu.Lock()
	id, ok := s.entries[job]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s is not scheduled", job)
	}
	s.cron.Entry(id).WrappedJob.Run()
	return nil
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
