// Package gitrepo is the git-capable working tree the sync coordinator
// drives: a local checkout of the remote backup repository supporting clone,
// pull, stage, allow-empty commit, and push.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/lza6/VPN-to-GitHub/internal/credentials"
	"github.com/lza6/VPN-to-GitHub/internal/log"
)

var (
	// ErrNotInitialized means no working tree exists at the local path yet.
	ErrNotInitialized = errors.New("repository not initialized")

	// ErrRemoteConflict means the remote branch has diverged from the local
	// tree and a plain fast-forward pull cannot reconcile them.
	ErrRemoteConflict = errors.New("remote branch has diverged from local state")
)

const defaultNetworkTimeout = 60 * time.Second

// Options configures a Repo.
type Options struct {
	// URL of the remote repository.
	URL string
	// LocalPath is where the working tree lives on disk.
	LocalPath string
	// Branch to track and push to.
	Branch string
	// Username and Email form the commit author identity.
	Username string
	Email    string
	// NetworkTimeout bounds each outbound call. Zero uses the default.
	NetworkTimeout time.Duration
}

// Repo wraps a go-git repository as the sync engine's working tree.
// Not safe for concurrent use; the coordinator guarantees a single in-flight
// sync at a time.
type Repo struct {
	opts   Options
	repo   *git.Repository
	auth   transport.AuthMethod
	logger *slog.Logger
}

// New creates a Repo handle. No filesystem or network access happens until
// Clone or Open.
func New(opts Options) *Repo {
	if opts.Branch == "" {
		opts.Branch = "main"
	}
	if opts.NetworkTimeout <= 0 {
		opts.NetworkTimeout = defaultNetworkTimeout
	}
	return &Repo{
		opts:   opts,
		logger: log.WithComponent("gitrepo"),
	}
}

// Root returns the working tree directory.
func (r *Repo) Root() string {
	return r.opts.LocalPath
}

// IsInitialized reports whether a git repository exists at the local path.
func (r *Repo) IsInitialized() bool {
	if r.repo != nil {
		return true
	}
	_, err := git.PlainOpen(r.opts.LocalPath)
	return err == nil
}

// Open attaches to an existing working tree.
func (r *Repo) Open() error {
	if r.repo != nil {
		return nil
	}
	repo, err := git.PlainOpen(r.opts.LocalPath)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return fmt.Errorf("%w: %s", ErrNotInitialized, r.opts.LocalPath)
		}
		return fmt.Errorf("open repository: %w", err)
	}
	r.repo = repo
	return nil
}

// Clone wipes any previous checkout and clones the configured branch from
// the remote, then records the author identity in the repository config.
func (r *Repo) Clone(ctx context.Context, cred credentials.Credential) error {
	if r.opts.URL == "" {
		return fmt.Errorf("remote URL is not configured")
	}

	if err := os.RemoveAll(r.opts.LocalPath); err != nil {
		return fmt.Errorf("remove stale checkout: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.opts.LocalPath), 0o755); err != nil {
		return fmt.Errorf("create checkout parent: %w", err)
	}

	r.SetCredential(cred)
	cctx, cancel := r.callContext(ctx)
	defer cancel()

	r.logger.Info("cloning remote", "url", r.opts.URL, "branch", r.opts.Branch)
	repo, err := git.PlainCloneContext(cctx, r.opts.LocalPath, false, &git.CloneOptions{
		URL:           r.opts.URL,
		ReferenceName: plumbing.NewBranchReferenceName(r.opts.Branch),
		SingleBranch:  true,
		Auth:          r.auth,
	})
	if err != nil {
		return fmt.Errorf("clone %s: %w", r.opts.URL, err)
	}
	r.repo = repo

	if r.opts.Username != "" && r.opts.Email != "" {
		cfg, err := repo.Config()
		if err != nil {
			return fmt.Errorf("read repository config: %w", err)
		}
		cfg.User.Name = r.opts.Username
		cfg.User.Email = r.opts.Email
		if err := repo.SetConfig(cfg); err != nil {
			return fmt.Errorf("write repository config: %w", err)
		}
	}
	return nil
}

// SetCredential installs the auth used for subsequent remote operations.
// Called at the start of every sync attempt so a stale credential from a
// prior session is never reused. A zero credential clears auth (anonymous
// access, e.g. local fixtures).
func (r *Repo) SetCredential(cred credentials.Credential) {
	if cred.IsZero() {
		r.auth = nil
		return
	}
	username := cred.Username
	if username == "" {
		// GitHub accepts any non-empty username when a token is supplied.
		username = "git"
	}
	r.auth = &githttp.BasicAuth{Username: username, Password: cred.Token}
}

// Pull fast-forwards the working tree from the remote branch. Already
// up-to-date is success. A diverged remote surfaces as ErrRemoteConflict so
// the caller can apply its own policy.
func (r *Repo) Pull(ctx context.Context) error {
	if err := r.Open(); err != nil {
		return err
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}

	cctx, cancel := r.callContext(ctx)
	defer cancel()

	err = wt.PullContext(cctx, &git.PullOptions{
		RemoteName:    git.DefaultRemoteName,
		ReferenceName: plumbing.NewBranchReferenceName(r.opts.Branch),
		SingleBranch:  true,
		Auth:          r.auth,
	})
	switch {
	case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate):
		return nil
	case errors.Is(err, git.ErrNonFastForwardUpdate):
		return fmt.Errorf("%w: %v", ErrRemoteConflict, err)
	default:
		return fmt.Errorf("pull %s: %w", r.opts.Branch, err)
	}
}

// AddAll stages every change in the working tree, including untracked files.
func (r *Repo) AddAll() error {
	if err := r.Open(); err != nil {
		return err
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("stage changes: %w", err)
	}
	return nil
}

// Commit creates a commit with the given message. Empty commits are allowed:
// a backup run with no content drift still produces a heartbeat commit.
func (r *Repo) Commit(message string) error {
	if err := r.Open(); err != nil {
		return err
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}

	sig := &object.Signature{
		Name:  r.opts.Username,
		Email: r.opts.Email,
		When:  time.Now(),
	}
	if sig.Name == "" {
		sig.Name = "vpn2gh"
	}
	if sig.Email == "" {
		sig.Email = "vpn2gh@localhost"
	}

	if _, err := wt.Commit(message, &git.CommitOptions{
		Author:            sig,
		Committer:         sig,
		AllowEmptyCommits: true,
	}); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Push publishes the local branch head to the remote.
func (r *Repo) Push(ctx context.Context) error {
	if err := r.Open(); err != nil {
		return err
	}

	cctx, cancel := r.callContext(ctx)
	defer cancel()

	refSpec := gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", r.opts.Branch, r.opts.Branch))
	err := r.repo.PushContext(cctx, &git.PushOptions{
		RemoteName: git.DefaultRemoteName,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Auth:       r.auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("push %s: %w", r.opts.Branch, err)
	}
	return nil
}

func (r *Repo) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.opts.NetworkTimeout)
}
