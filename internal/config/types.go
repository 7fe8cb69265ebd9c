package config

import "time"

// Config represents the complete vpn2gh configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Repo    RepoConfig    `yaml:"repo"`
	Git     GitIdentity   `yaml:"git"`
	Upload  UploadConfig  `yaml:"upload"`
	Watch   WatchConfig   `yaml:"watch"`
	State   StateConfig   `yaml:"state"`
	API     APIConfig     `yaml:"api,omitempty"`
}

// ServiceConfig defines core daemon settings.
type ServiceConfig struct {
	Name         string        `yaml:"name"`
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"`
	PollInterval time.Duration `yaml:"poll_interval"`
	ErrorBackoff time.Duration `yaml:"error_backoff"`
}

// RepoConfig defines the remote repository and local working tree.
type RepoConfig struct {
	URL            string        `yaml:"url"`
	Branch         string        `yaml:"branch"`
	LocalPath      string        `yaml:"local_path"`
	NetworkTimeout time.Duration `yaml:"network_timeout"`
}

// GitIdentity is the author identity used for backup commits.
type GitIdentity struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
}

// UploadConfig defines what gets backed up and how often.
type UploadConfig struct {
	Interval         time.Duration `yaml:"interval"`
	SourceDir        string        `yaml:"source_dir"`
	Files            []string      `yaml:"files"`
	HistoryRetention time.Duration `yaml:"history_retention"`
}

// WatchConfig controls the event-driven trigger path.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// StateConfig defines state storage settings.
type StateConfig struct {
	Path     string `yaml:"path"`
	LockPath string `yaml:"lock_path,omitempty"`
}

// APIConfig defines the local HTTP status API.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	APIKey  string `yaml:"api_key,omitempty"`
}

// DefaultFiles is the default set of tracked subscription files, matching the
// filenames published by the upstream converter.
var DefaultFiles = []string{
	"ACL4SSR_Online_Full.yaml",
	"all.yaml",
	"base64.txt",
	"bdg.yaml",
	"mihomo.yaml",
}

// Defaults returns a Config populated with default values.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:         "vpn2gh",
			LogLevel:     "INFO",
			LogFormat:    "text",
			PollInterval: 30 * time.Second,
			ErrorBackoff: 60 * time.Second,
		},
		Repo: RepoConfig{
			Branch:         "main",
			LocalPath:      "repo",
			NetworkTimeout: 60 * time.Second,
		},
		Upload: UploadConfig{
			Interval:         6 * time.Hour,
			Files:            append([]string(nil), DefaultFiles...),
			HistoryRetention: 30 * 24 * time.Hour,
		},
		Watch: WatchConfig{Enabled: true},
		State: StateConfig{
			Path: "state/vpn2gh.db",
		},
		API: APIConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8377",
		},
	}
}
