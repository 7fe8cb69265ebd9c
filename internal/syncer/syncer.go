// Package syncer implements the sync coordinator: it decides which tracked
// files changed since the last confirmed upload, copies them into the
// working tree, and drives the pull-copy-commit-push cycle against the
// remote. Every attempt commits and pushes, even with no content drift, so
// the remote history doubles as a liveness heartbeat.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lza6/VPN-to-GitHub/internal/credentials"
	"github.com/lza6/VPN-to-GitHub/internal/fingerprint"
	"github.com/lza6/VPN-to-GitHub/internal/gitrepo"
	"github.com/lza6/VPN-to-GitHub/internal/log"
)

//go:generate mockgen -destination=mocks/mock_workingtree.go -package=mocks github.com/lza6/VPN-to-GitHub/internal/syncer WorkingTree

// WorkingTree is the git-capable collaborator the coordinator drives. Any
// operation may fail with a tool-level error, which the coordinator folds
// into its result message.
type WorkingTree interface {
	IsInitialized() bool
	Open() error
	Root() string
	SetCredential(cred credentials.Credential)
	Pull(ctx context.Context) error
	AddAll() error
	Commit(message string) error
	Push(ctx context.Context) error
}

// Notifier receives human-readable progress lines. Fire-and-forget; it may
// be invoked from background goroutines.
type Notifier func(msg string)

// Result is the outcome of one sync attempt. On success Hashes holds the
// full current hash map (changed and unchanged files); on failure it holds
// the caller's baseline untouched, so a failed attempt never shifts the
// change-detection reference point.
type Result struct {
	AttemptID   string
	OK          bool
	Message     string
	Hashes      map[string]string
	Changed     []string
	StartedAt   time.Time
	CompletedAt time.Time
}

// Syncer coordinates one sync attempt at a time. It holds no locks itself;
// the orchestrator guarantees at most one in-flight invocation.
type Syncer struct {
	tree   WorkingTree
	cache  *fingerprint.Cache
	notify Notifier
	logger *slog.Logger
}

// New creates a Syncer. notify may be nil.
func New(tree WorkingTree, cache *fingerprint.Cache, notify Notifier) *Syncer {
	if notify == nil {
		notify = func(string) {}
	}
	return &Syncer{
		tree:   tree,
		cache:  cache,
		notify: notify,
		logger: log.WithComponent("syncer"),
	}
}

// SyncAndUpload runs the full upload cycle for the given source files.
// sourceFiles are absolute paths; baseline maps base filenames to the hash
// last confirmed on the remote. Errors never escape: every path returns a
// structured Result.
func (s *Syncer) SyncAndUpload(ctx context.Context, sourceFiles []string, baseline map[string]string, cred credentials.Credential) Result {
	started := time.Now()
	attemptID := uuid.NewString()
	logger := s.logger.With("attempt_id", attemptID)

	fail := func(msg string) Result {
		s.notify(msg)
		logger.Error("sync attempt failed", "reason", msg)
		return Result{
			AttemptID:   attemptID,
			OK:          false,
			Message:     msg,
			Hashes:      baseline,
			StartedAt:   started,
			CompletedAt: time.Now(),
		}
	}

	if !s.tree.IsInitialized() {
		return fail("repository not initialized, run init first")
	}
	if err := s.tree.Open(); err != nil {
		return fail(fmt.Sprintf("failed to open repository: %v", err))
	}

	s.notify("checking for changed files")
	changed, current := s.diff(sourceFiles, baseline)
	if len(changed) > 0 {
		s.notify(fmt.Sprintf("%d file(s) changed since last upload", len(changed)))
	} else {
		s.notify("no changes detected, uploading heartbeat commit")
	}

	if !cred.IsZero() {
		s.notify("refreshing remote credential")
		s.tree.SetCredential(cred)
	}

	s.notify("pulling latest from remote")
	if err := s.tree.Pull(ctx); err != nil {
		// Local files remain the source of truth for the tracked names, so a
		// failed pull does not stop the upload. A diverged remote is called
		// out explicitly rather than silently overwritten.
		if errors.Is(err, gitrepo.ErrRemoteConflict) {
			s.notify("remote conflict detected, keeping local files")
			logger.Warn("remote branch diverged, local files win", "error", err)
		} else {
			s.notify("pull failed, continuing with local state")
			logger.Warn("pull failed, continuing", "error", err)
		}
	}

	changedNames := make([]string, 0, len(changed))
	for _, src := range changed {
		name := filepath.Base(src)
		s.notify(fmt.Sprintf("copying %s", name))
		if err := copyFile(src, filepath.Join(s.tree.Root(), name)); err != nil {
			logger.Error("copy failed", "file", name, "error", err)
			return fail(fmt.Sprintf("failed to copy %s: %v", name, err))
		}
		changedNames = append(changedNames, name)
	}

	if err := s.tree.AddAll(); err != nil {
		return fail(fmt.Sprintf("failed to stage changes: %v", err))
	}

	stamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf("Auto backup - %s", stamp)
	s.notify(fmt.Sprintf("committing: %s", message))
	if err := s.tree.Commit(message); err != nil {
		return fail(fmt.Sprintf("failed to commit: %v", err))
	}

	s.notify("pushing to remote")
	if err := s.tree.Push(ctx); err != nil {
		return fail(fmt.Sprintf("failed to push: %v", err))
	}

	s.notify(fmt.Sprintf("upload complete - %s", stamp))
	logger.Info("sync attempt succeeded", "changed", len(changedNames), "tracked", len(current))
	return Result{
		AttemptID:   attemptID,
		OK:          true,
		Message:     fmt.Sprintf("upload complete - %s", stamp),
		Hashes:      current,
		Changed:     changedNames,
		StartedAt:   started,
		CompletedAt: time.Now(),
	}
}

// diff returns the source paths whose current hash differs from the
// baseline, plus the full current hash map. Files missing locally are
// skipped, not treated as deletions. An empty hash (unreadable file) always
// counts as changed.
func (s *Syncer) diff(sourceFiles []string, baseline map[string]string) (changed []string, current map[string]string) {
	current = make(map[string]string, len(sourceFiles))
	for _, src := range sourceFiles {
		if _, err := os.Stat(src); err != nil {
			continue
		}
		name := filepath.Base(src)
		sum := s.cache.Hash(src)
		current[name] = sum
		if sum == "" || sum != baseline[name] {
			changed = append(changed, src)
		}
	}
	return changed, current
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
