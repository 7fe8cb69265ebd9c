package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lza6/VPN-to-GitHub/internal/api"
	"github.com/lza6/VPN-to-GitHub/internal/config"
	"github.com/lza6/VPN-to-GitHub/internal/credentials"
	"github.com/lza6/VPN-to-GitHub/internal/doctor"
	"github.com/lza6/VPN-to-GitHub/internal/fingerprint"
	"github.com/lza6/VPN-to-GitHub/internal/gitrepo"
	"github.com/lza6/VPN-to-GitHub/internal/lock"
	"github.com/lza6/VPN-to-GitHub/internal/log"
	"github.com/lza6/VPN-to-GitHub/internal/progress"
	"github.com/lza6/VPN-to-GitHub/internal/service"
	"github.com/lza6/VPN-to-GitHub/internal/state"
	"github.com/lza6/VPN-to-GitHub/internal/storage"
	"github.com/lza6/VPN-to-GitHub/internal/syncer"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "start":
		os.Exit(runStart(args))
	case "sync":
		os.Exit(runSync(args))
	case "init":
		os.Exit(runInit(args))
	case "status":
		os.Exit(runStatus(args))
	case "doctor":
		os.Exit(runDoctor(args))
	case "version":
		fmt.Printf("vpn2gh version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`vpn2gh - backs up local proxy config files into a GitHub repository

Usage:
  vpn2gh <command> [flags]

Commands:
  start     Run the sync engine in foreground (scheduler + watcher + API)
  sync      Run one sync attempt now and exit
  init      Clone the remote repository into the local checkout
  status    Show upload counters and recent attempts
  doctor    Validate configuration and environment
  version   Show version information
  help      Show this help message

All commands accept -config pointing at a config file or directory
(default: config.yaml).
`)
}

func loadConfig(args []string, verb string) (*config.Config, error) {
	fs := flag.NewFlagSet(verb, flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func credentialChain() credentials.Provider {
	chain := credentials.Chain{credentials.EnvProvider{}}
	if path := os.Getenv("VPN2GH_TOKEN_FILE"); path != "" {
		chain = append(credentials.Chain{credentials.FileProvider{Path: path}}, chain...)
	}
	return chain
}

func newRepo(cfg *config.Config) *gitrepo.Repo {
	return gitrepo.New(gitrepo.Options{
		URL:            cfg.Repo.URL,
		LocalPath:      cfg.Repo.LocalPath,
		Branch:         cfg.Repo.Branch,
		Username:       cfg.Git.Username,
		Email:          cfg.Git.Email,
		NetworkTimeout: cfg.Repo.NetworkTimeout,
	})
}

func buildService(cfg *config.Config, store *state.Store, hub *progress.Hub) *service.Service {
	repo := newRepo(cfg)
	cache := fingerprint.NewCache()
	upl := syncer.New(repo, cache, hub.Notify)
	return service.New(cfg, upl, store, credentialChain(), hub)
}

func runStart(args []string) int {
	cfg, err := loadConfig(args, "start")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("vpn2gh starting", "version", version)

	instance, err := lock.Acquire(cfg.LockPath())
	if err != nil {
		logger.Error("failed to acquire instance lock (another instance may be running)",
			"path", cfg.LockPath(), "error", err)
		return 1
	}
	defer instance.Release()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.State.Path, "error", err)
		return 1
	}
	defer db.Close()

	hub := progress.NewHub(100)
	store := state.NewStore(db)
	svc := buildService(cfg, store, hub)

	if err := svc.Start(ctx); err != nil {
		logger.Error("failed to start engine", "error", err)
		return 1
	}
	defer svc.Stop()

	errCh := make(chan error, 1)
	if cfg.API.Enabled {
		apiServer := api.New(api.Config{
			Listen: cfg.API.Listen,
			APIKey: cfg.API.APIKey,
		}, svc, log.WithComponent("api"))
		go func() {
			if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("api: %w", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("vpn2gh running (press Ctrl+C to stop)",
		"interval", cfg.Upload.Interval, "files", len(cfg.Upload.Files))

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("vpn2gh stopped")
	return 0
}

func runSync(args []string) int {
	cfg, err := loadConfig(args, "sync")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)

	// The lock keeps a one-shot sync from racing a running daemon over the
	// same checkout.
	instance, err := lock.Acquire(cfg.LockPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "another instance holds the lock, use its API to trigger a sync\n")
		return 1
	}
	defer instance.Release()

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		return 1
	}
	defer db.Close()

	hub := progress.NewHub(100)
	entries, cancelSub := hub.Subscribe()
	defer cancelSub()
	go func() {
		for e := range entries {
			fmt.Println(e.Msg)
		}
	}()

	svc := buildService(cfg, state.NewStore(db), hub)
	result, err := svc.TriggerSync(ctx, "command line")
	if err != nil {
		fmt.Fprintf(os.Stderr, "sync failed: %v\n", err)
		return 1
	}
	if !result.OK {
		fmt.Fprintf(os.Stderr, "sync failed: %s\n", result.Message)
		return 1
	}
	fmt.Printf("sync complete, %d file(s) changed\n", len(result.Changed))
	return 0
}

func runInit(args []string) int {
	cfg, err := loadConfig(args, "init")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)

	repo := newRepo(cfg)
	if repo.IsInitialized() {
		fmt.Printf("checkout already initialized at %s\n", cfg.Repo.LocalPath)
		return 0
	}

	cred, err := credentialChain().Credential()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: no credential available, cloning anonymously\n")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := repo.Clone(ctx, cred); err != nil {
		fmt.Fprintf(os.Stderr, "clone failed: %v\n", err)
		return 1
	}
	fmt.Printf("cloned %s into %s\n", cfg.Repo.URL, cfg.Repo.LocalPath)
	return 0
}

func runStatus(args []string) int {
	cfg, err := loadConfig(args, "status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		return 1
	}
	defer db.Close()

	store := state.NewStore(db)
	stats, err := store.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read stats: %v\n", err)
		return 1
	}

	fmt.Printf("uploads: %d total, %d succeeded, %d failed\n",
		stats.Total, stats.Succeeded, stats.Failed)
	if !stats.LastUploadAt.IsZero() {
		fmt.Printf("last successful upload: %s\n", stats.LastUploadAt.Local().Format(time.RFC1123))
	}

	history, err := store.History(ctx, 5)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read history: %v\n", err)
		return 1
	}
	if len(history) > 0 {
		fmt.Println("recent attempts:")
		for _, a := range history {
			outcome := "ok"
			if !a.Success {
				outcome = "failed"
			}
			fmt.Printf("  %s  %-6s  %d changed  %s\n",
				a.StartedAt.Local().Format("2006-01-02 15:04:05"), outcome,
				a.ChangedFiles, a.Message)
		}
	}
	return 0
}

func runDoctor(args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Emit the result as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	result := doctor.New(cfg, newRepo(cfg), credentialChain()).Validate()

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		for _, e := range result.Errors {
			fmt.Printf("ERROR   [%s] %s\n", e.Category, e.Message)
		}
		for _, w := range result.Warnings {
			fmt.Printf("WARNING [%s] %s\n", w.Category, w.Message)
		}
		if result.Valid {
			fmt.Println("configuration OK")
		}
	}

	if !result.Valid {
		return 1
	}
	return 0
}
