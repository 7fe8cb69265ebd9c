package api

import (
	"github.com/lza6/VPN-to-GitHub/internal/progress"
	"github.com/lza6/VPN-to-GitHub/internal/state"
)

// HealthzResponse is the /healthz payload.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// HistoryResponse wraps recent attempts, newest first.
type HistoryResponse struct {
	Attempts []state.Attempt `json:"attempts"`
}

// ProgressResponse wraps recent progress entries.
type ProgressResponse struct {
	Entries []progress.Entry `json:"entries"`
}

// SyncResponse reports the outcome of a manual sync trigger.
type SyncResponse struct {
	AttemptID    string   `json:"attempt_id"`
	OK           bool     `json:"ok"`
	Message      string   `json:"message"`
	ChangedFiles []string `json:"changed_files"`
}

// IntervalRequest changes the periodic upload interval.
type IntervalRequest struct {
	Interval string `json:"interval"`
}

// IntervalResponse echoes the applied interval.
type IntervalResponse struct {
	Interval string `json:"interval"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
