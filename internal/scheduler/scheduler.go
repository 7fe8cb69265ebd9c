// Package scheduler drives the periodic upload trigger. The loop wakes on a
// short poll period and fires the callback once a deadline is reached; the
// next deadline is always computed relative to when the previous run
// finished, so a slow upload never causes back-to-back fires.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lza6/VPN-to-GitHub/internal/log"
)

const (
	defaultPoll         = 30 * time.Second
	defaultErrorBackoff = 60 * time.Second
	stopJoinTimeout     = 5 * time.Second
)

// Options tune the loop's wake-up cadence. Zero values use defaults; tests
// shrink them to keep runtimes short.
type Options struct {
	Poll         time.Duration
	ErrorBackoff time.Duration
}

// Scheduler runs a single background loop that invokes a callback whenever
// the upload deadline passes. Idle -> Running -> Idle; Start on a running
// scheduler replaces the previous loop.
type Scheduler struct {
	mu       sync.Mutex
	interval time.Duration
	callback func() error
	stopCh   chan struct{}
	running  bool
	nextRun  time.Time
	lastRun  time.Time

	wg      sync.WaitGroup
	poll    time.Duration
	backoff time.Duration
	logger  *slog.Logger
}

// New creates a stopped Scheduler.
func New(opts Options) *Scheduler {
	if opts.Poll <= 0 {
		opts.Poll = defaultPoll
	}
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = defaultErrorBackoff
	}
	return &Scheduler{
		poll:    opts.Poll,
		backoff: opts.ErrorBackoff,
		logger:  log.WithComponent("scheduler"),
	}
}

// Start launches the background loop with the first deadline at
// now + interval. A running scheduler is stopped first, so at most one loop
// is ever active.
func (s *Scheduler) Start(interval time.Duration, callback func() error) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}
	if callback == nil {
		return fmt.Errorf("callback is required")
	}

	s.Stop()

	stopCh := make(chan struct{})
	s.mu.Lock()
	s.interval = interval
	s.callback = callback
	s.stopCh = stopCh
	s.running = true
	s.nextRun = time.Now().Add(interval)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(stopCh)

	s.logger.Info("scheduler started", "interval", interval, "next_run", s.NextRun())
	return nil
}

// Stop signals the loop to exit and waits (bounded) for it to finish, then
// clears the pending deadline. A callback already executing is not
// interrupted; Stop only prevents future fires.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.stopCh = nil
	s.running = false
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopJoinTimeout):
		s.logger.Warn("scheduler loop did not exit within join timeout")
	}

	s.mu.Lock()
	s.nextRun = time.Time{}
	s.mu.Unlock()
	s.logger.Info("scheduler stopped")
}

// UpdateInterval changes the interval. If the scheduler is running with a
// pending deadline, the deadline is recomputed as now + interval immediately
// rather than waiting out the old target.
func (s *Scheduler) UpdateInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.mu.Lock()
	s.interval = interval
	if s.running && !s.nextRun.IsZero() {
		s.nextRun = time.Now().Add(interval)
	}
	s.mu.Unlock()
	s.logger.Info("upload interval updated", "interval", interval)
}

// IsRunning reports whether the background loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the pending deadline, or the zero time when idle.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRun
}

// LastRun returns the completion time of the most recent fire, or the zero
// time if the callback has never run.
func (s *Scheduler) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// Remaining returns the time until the pending deadline, clamped to zero.
func (s *Scheduler) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nextRun.IsZero() {
		return 0
	}
	if r := time.Until(s.nextRun); r > 0 {
		return r
	}
	return 0
}

func (s *Scheduler) loop(stopCh chan struct{}) {
	defer s.wg.Done()

	for {
		sleep := s.poll
		if err := s.fireIfDue(stopCh); err != nil {
			s.logger.Error("scheduled upload failed, backing off", "error", err)
			sleep = s.backoff
		}

		select {
		case <-stopCh:
			return
		case <-time.After(sleep):
		}
	}
}

// fireIfDue invokes the callback synchronously when the deadline has passed.
// The callback is not preempted; a slow run simply delays the next poll
// check. On completion the deadline moves to completion time + interval.
func (s *Scheduler) fireIfDue(stopCh chan struct{}) error {
	s.mu.Lock()
	due := !s.nextRun.IsZero() && !time.Now().Before(s.nextRun)
	callback := s.callback
	s.mu.Unlock()
	if !due || callback == nil {
		return nil
	}

	select {
	case <-stopCh:
		return nil
	default:
	}

	s.logger.Debug("upload deadline reached, firing")
	err := callback()

	now := time.Now()
	s.mu.Lock()
	s.lastRun = now
	s.nextRun = now.Add(s.interval)
	next := s.nextRun
	s.mu.Unlock()
	s.logger.Debug("upload fire complete", "next_run", next)
	return err
}
