// Package service wires the watcher, scheduler, syncer, and state store into
// the running engine. It enforces the single most important runtime rule: at
// most one sync attempt is in flight at any moment, and any trigger arriving
// while one runs is dropped, not queued.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lza6/VPN-to-GitHub/internal/config"
	"github.com/lza6/VPN-to-GitHub/internal/credentials"
	"github.com/lza6/VPN-to-GitHub/internal/log"
	"github.com/lza6/VPN-to-GitHub/internal/progress"
	"github.com/lza6/VPN-to-GitHub/internal/scheduler"
	"github.com/lza6/VPN-to-GitHub/internal/state"
	"github.com/lza6/VPN-to-GitHub/internal/syncer"
	"github.com/lza6/VPN-to-GitHub/internal/watcher"
)

// ErrSyncInFlight is returned when a trigger arrives while an attempt is
// already running.
var ErrSyncInFlight = errors.New("upload already in progress")

// Uploader performs one full sync attempt against the remote.
type Uploader interface {
	SyncAndUpload(ctx context.Context, sourceFiles []string, baseline map[string]string, cred credentials.Credential) syncer.Result
}

// Service owns the background triggers and serializes sync attempts.
type Service struct {
	cfg      *config.Config
	uploader Uploader
	store    *state.Store
	creds    credentials.Provider
	hub      *progress.Hub
	logger   *slog.Logger

	watcher   *watcher.Watcher
	scheduler *scheduler.Scheduler

	inFlight atomic.Bool
}

// New builds a Service around an uploader and its persistence.
func New(cfg *config.Config, uploader Uploader, store *state.Store, creds credentials.Provider, hub *progress.Hub) *Service {
	if hub == nil {
		hub = progress.NewHub(0)
	}
	return &Service{
		cfg:      cfg,
		uploader: uploader,
		store:    store,
		creds:    creds,
		hub:      hub,
		logger:   log.WithComponent("service"),
		watcher:  watcher.New(),
		scheduler: scheduler.New(scheduler.Options{
			Poll:         cfg.Service.PollInterval,
			ErrorBackoff: cfg.Service.ErrorBackoff,
		}),
	}
}

// Start launches the periodic scheduler and, when enabled, the file watcher.
// It returns once both are running; triggers then fire in the background
// until Stop.
func (s *Service) Start(ctx context.Context) error {
	if err := s.store.PruneHistory(ctx, s.cfg.Upload.HistoryRetention); err != nil {
		s.logger.Warn("history prune failed", "error", err)
	}

	if err := s.scheduler.Start(s.cfg.Upload.Interval, func() error {
		_, err := s.runSync(ctx, "scheduled interval")
		if errors.Is(err, ErrSyncInFlight) {
			return nil
		}
		return err
	}); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	if s.cfg.Watch.Enabled {
		err := s.watcher.Start(s.cfg.Upload.SourceDir, s.cfg.Upload.Files, func(filename string) {
			go s.TriggerSync(ctx, "file changed: "+filename)
		})
		if err != nil {
			s.scheduler.Stop()
			return fmt.Errorf("start watcher: %w", err)
		}
	}

	s.logger.Info("service started",
		"interval", s.cfg.Upload.Interval,
		"watch", s.cfg.Watch.Enabled,
		"files", len(s.cfg.Upload.Files))
	return nil
}

// Stop halts the watcher and scheduler. An attempt already in flight is
// allowed to finish; no new one starts afterwards.
func (s *Service) Stop() {
	s.watcher.Stop()
	s.scheduler.Stop()
	s.logger.Info("service stopped")
}

// TriggerSync runs one sync attempt for the given reason. It is safe to call
// from any goroutine; concurrent callers beyond the first get
// ErrSyncInFlight and no attempt is queued on their behalf.
func (s *Service) TriggerSync(ctx context.Context, reason string) (syncer.Result, error) {
	return s.runSync(ctx, reason)
}

func (s *Service) runSync(ctx context.Context, reason string) (syncer.Result, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Info("sync skipped", "reason", reason)
		s.hub.Notify("upload already in progress, skipping")
		return syncer.Result{}, ErrSyncInFlight
	}
	defer s.inFlight.Store(false)

	logger := s.logger.With("reason", reason)
	logger.Info("sync started")
	s.hub.Notify("sync started: " + reason)

	baseline, err := s.store.Baseline(ctx)
	if err != nil {
		return syncer.Result{}, fmt.Errorf("load baseline: %w", err)
	}

	cred, err := s.creds.Credential()
	if err != nil {
		logger.Debug("no credential resolved, proceeding unauthenticated", "error", err)
	}

	result := s.uploader.SyncAndUpload(ctx, s.cfg.SourceFilePaths(), baseline, cred)
	if result.AttemptID == "" {
		result.AttemptID = uuid.NewString()
	}

	if err := s.store.RecordAttempt(ctx, state.Attempt{
		ID:           result.AttemptID,
		StartedAt:    result.StartedAt,
		CompletedAt:  result.CompletedAt,
		Success:      result.OK,
		Message:      result.Message,
		ChangedFiles: len(result.Changed),
	}); err != nil {
		logger.Error("record attempt failed", "error", err)
	}

	if result.OK {
		if err := s.store.ReplaceBaseline(ctx, result.Hashes); err != nil {
			logger.Error("persist baseline failed", "error", err)
		}
		logger.Info("sync complete", "changed", len(result.Changed), "attempt_id", result.AttemptID)
	} else {
		logger.Warn("sync failed", "message", result.Message, "attempt_id", result.AttemptID)
	}
	return result, nil
}

// UpdateInterval changes the periodic interval, rescheduling the next run
// relative to now.
func (s *Service) UpdateInterval(interval time.Duration) {
	s.cfg.Upload.Interval = interval
	s.scheduler.UpdateInterval(interval)
	s.logger.Info("upload interval updated", "interval", interval)
}

// Status is a point-in-time snapshot of the engine for the status API and
// the status verb.
type Status struct {
	Name             string        `json:"name"`
	SchedulerRunning bool          `json:"scheduler_running"`
	WatcherRunning   bool          `json:"watcher_running"`
	SyncInFlight     bool          `json:"sync_in_flight"`
	Interval         time.Duration `json:"interval_ns"`
	NextRunAt        time.Time     `json:"next_run_at"`
	LastRunAt        time.Time     `json:"last_run_at"`
	Remaining        time.Duration `json:"remaining_ns"`
	TrackedFiles     []string      `json:"tracked_files"`
	Stats            state.Stats   `json:"stats"`
}

// Status reads counters from the store and combines them with live runtime
// state.
func (s *Service) Status(ctx context.Context) (Status, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("read stats: %w", err)
	}
	return Status{
		Name:             s.cfg.Service.Name,
		SchedulerRunning: s.scheduler.IsRunning(),
		WatcherRunning:   s.watcher.IsRunning(),
		SyncInFlight:     s.inFlight.Load(),
		Interval:         s.cfg.Upload.Interval,
		NextRunAt:        s.scheduler.NextRun(),
		LastRunAt:        s.scheduler.LastRun(),
		Remaining:        s.scheduler.Remaining(),
		TrackedFiles:     s.cfg.Upload.Files,
		Stats:            stats,
	}, nil
}

// History exposes recent attempts for the API layer.
func (s *Service) History(ctx context.Context, limit int) ([]state.Attempt, error) {
	return s.store.History(ctx, limit)
}

// Progress exposes the recent progress entries for the API layer.
func (s *Service) Progress() []progress.Entry {
	return s.hub.Recent()
}
