package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a file. ${ENV_VAR} references are
// expanded before decoding. Missing fields keep their default values.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(expandEnvVars(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", absPath, err)
	}

	// Relative state/repo paths resolve against the config file's directory so
	// the daemon behaves the same regardless of the invoking cwd.
	baseDir := filepath.Dir(absPath)
	cfg.Repo.LocalPath = resolvePath(baseDir, cfg.Repo.LocalPath)
	cfg.State.Path = resolvePath(baseDir, cfg.State.Path)
	if cfg.State.LockPath != "" {
		cfg.State.LockPath = resolvePath(baseDir, cfg.State.LockPath)
	}
	if cfg.Upload.SourceDir != "" {
		cfg.Upload.SourceDir = resolvePath(baseDir, cfg.Upload.SourceDir)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// expandEnvVars replaces ${VAR} references with environment values.
// Unset variables expand to the empty string.
func expandEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

func resolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

func validate(cfg *Config) error {
	if cfg.Repo.URL == "" {
		return fmt.Errorf("repo.url is required")
	}
	if !strings.HasPrefix(cfg.Repo.URL, "https://") && !strings.HasPrefix(cfg.Repo.URL, "http://") && !strings.HasPrefix(cfg.Repo.URL, "file://") && !filepath.IsAbs(cfg.Repo.URL) {
		return fmt.Errorf("repo.url must be an http(s) or local URL: %q", cfg.Repo.URL)
	}
	if cfg.Repo.Branch == "" {
		return fmt.Errorf("repo.branch is required")
	}
	if cfg.Upload.SourceDir == "" {
		return fmt.Errorf("upload.source_dir is required")
	}
	if len(cfg.Upload.Files) == 0 {
		return fmt.Errorf("upload.files must list at least one filename")
	}
	for _, f := range cfg.Upload.Files {
		if f != filepath.Base(f) {
			return fmt.Errorf("upload.files entries must be bare filenames, got %q", f)
		}
	}
	if cfg.Upload.Interval <= 0 {
		return fmt.Errorf("upload.interval must be positive")
	}
	if cfg.Service.PollInterval <= 0 {
		return fmt.Errorf("service.poll_interval must be positive")
	}
	if cfg.State.Path == "" {
		return fmt.Errorf("state.path is required")
	}
	if cfg.API.Enabled && cfg.API.Listen == "" {
		return fmt.Errorf("api.listen is required when the API is enabled")
	}
	return nil
}

// LockPath returns the configured instance lock path, defaulting to a
// sibling of the state database.
func (c *Config) LockPath() string {
	if c.State.LockPath != "" {
		return c.State.LockPath
	}
	return filepath.Join(filepath.Dir(c.State.Path), "vpn2gh.lock")
}

// SourceFilePaths returns the absolute path of every tracked filename inside
// the source directory, whether or not it currently exists.
func (c *Config) SourceFilePaths() []string {
	paths := make([]string, 0, len(c.Upload.Files))
	for _, name := range c.Upload.Files {
		paths = append(paths, filepath.Join(c.Upload.SourceDir, name))
	}
	return paths
}
