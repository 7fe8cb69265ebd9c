// Package doctor validates a vpn2gh deployment before it runs: config
// sanity, source files, state paths, the local checkout, and credentials.
package doctor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lza6/VPN-to-GitHub/internal/config"
	"github.com/lza6/VPN-to-GitHub/internal/credentials"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// RepoChecker reports whether a local checkout exists.
type RepoChecker interface {
	IsInitialized() bool
}

// Doctor validates configuration against the filesystem and checkout.
type Doctor struct {
	cfg   *config.Config
	repo  RepoChecker
	creds credentials.Provider
}

// New creates a Doctor from a loaded config. repo and creds may be nil to
// skip those checks.
func New(cfg *config.Config, repo RepoChecker, creds credentials.Provider) *Doctor {
	return &Doctor{cfg: cfg, repo: repo, creds: creds}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.checkSourceFiles(r)
	d.checkStatePaths(r)
	d.checkIntervals(r)
	d.checkRepo(r)
	d.checkCredentials(r)
	d.checkAPI(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// checkSourceFiles verifies the source directory and tracked files. A
// missing file is a warning, not an error: the engine skips absent files on
// each attempt.
func (d *Doctor) checkSourceFiles(r *Result) {
	dir := d.cfg.Upload.SourceDir
	info, err := os.Stat(dir)
	if err != nil {
		d.addError(r, "source", "upload.source_dir",
			fmt.Sprintf("source directory %s does not exist", dir))
		return
	}
	if !info.IsDir() {
		d.addError(r, "source", "upload.source_dir",
			fmt.Sprintf("%s is not a directory", dir))
		return
	}

	if len(d.cfg.Upload.Files) == 0 {
		d.addError(r, "source", "upload.files", "no tracked files configured")
		return
	}
	for _, name := range d.cfg.Upload.Files {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			d.addWarning(r, "source", "upload.files",
				fmt.Sprintf("tracked file %s not found, it will be skipped until it appears", name))
		}
	}
}

// checkStatePaths verifies the state database and lock directories are
// writable.
func (d *Doctor) checkStatePaths(r *Result) {
	if d.cfg.State.Path == "" {
		d.addError(r, "state", "state.path", "state.path is required")
		return
	}
	for field, path := range map[string]string{
		"state.path":      d.cfg.State.Path,
		"state.lock_path": d.cfg.LockPath(),
	} {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			d.addError(r, "state", field,
				fmt.Sprintf("cannot create directory %s: %v", dir, err))
			continue
		}
		probe := filepath.Join(dir, ".vpn2gh-doctor")
		if err := os.WriteFile(probe, nil, 0o600); err != nil {
			d.addError(r, "state", field,
				fmt.Sprintf("directory %s is not writable: %v", dir, err))
			continue
		}
		_ = os.Remove(probe)
	}
}

func (d *Doctor) checkIntervals(r *Result) {
	if d.cfg.Upload.Interval <= 0 {
		d.addError(r, "schedule", "upload.interval", "interval must be positive")
		return
	}
	if d.cfg.Upload.Interval < time.Minute {
		d.addWarning(r, "schedule", "upload.interval",
			fmt.Sprintf("interval %s is very short, each run commits and pushes", d.cfg.Upload.Interval))
	}
}

func (d *Doctor) checkRepo(r *Result) {
	if d.repo == nil {
		return
	}
	if !d.repo.IsInitialized() {
		d.addWarning(r, "repo", "repo.local_path",
			"local checkout not initialized, run init before start")
	}
}

func (d *Doctor) checkCredentials(r *Result) {
	if d.creds == nil {
		return
	}
	cred, err := d.creds.Credential()
	if err != nil || cred.IsZero() {
		d.addWarning(r, "credentials", "",
			fmt.Sprintf("no git credential available, pushes will fail unless the remote is open (set %s)", credentials.EnvToken))
	}
}

func (d *Doctor) checkAPI(r *Result) {
	if !d.cfg.API.Enabled {
		return
	}
	if d.cfg.API.Listen == "" {
		d.addError(r, "api", "api.listen", "api.listen is required when API is enabled")
	}
	if d.cfg.API.APIKey == "" {
		d.addWarning(r, "api", "api.api_key", "API enabled without an API key")
	}
}
