package doctor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lza6/VPN-to-GitHub/internal/config"
	"github.com/lza6/VPN-to-GitHub/internal/credentials"
)

type stubRepo struct{ initialized bool }

func (s stubRepo) IsInitialized() bool { return s.initialized }

type stubCreds struct{ cred credentials.Credential }

func (s stubCreds) Credential() (credentials.Credential, error) {
	if s.cred.IsZero() {
		return credentials.Credential{}, errors.New("no credential")
	}
	return s.cred, nil
}

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Repo.URL = "https://example.com/backup.git"
	cfg.Upload.SourceDir = t.TempDir()
	cfg.Upload.Files = []string{"all.yaml"}
	cfg.State.Path = filepath.Join(t.TempDir(), "state.db")

	require.NoError(t, os.WriteFile(
		filepath.Join(cfg.Upload.SourceDir, "all.yaml"), []byte("x"), 0o644))
	return cfg
}

func TestValidDeployment(t *testing.T) {
	cfg := validConfig(t)
	d := New(cfg, stubRepo{initialized: true}, stubCreds{cred: credentials.Credential{Token: "tok"}})

	r := d.Validate()
	assert.True(t, r.Valid)
	assert.Empty(t, r.Errors)
	assert.Empty(t, r.Warnings)
}

func TestMissingSourceDirIsError(t *testing.T) {
	cfg := validConfig(t)
	cfg.Upload.SourceDir = filepath.Join(cfg.Upload.SourceDir, "nope")
	r := New(cfg, nil, nil).Validate()

	assert.False(t, r.Valid)
	require.NotEmpty(t, r.Errors)
	assert.Equal(t, "source", r.Errors[0].Category)
}

func TestMissingTrackedFileIsWarning(t *testing.T) {
	cfg := validConfig(t)
	cfg.Upload.Files = append(cfg.Upload.Files, "bdg.yaml")
	r := New(cfg, nil, nil).Validate()

	assert.True(t, r.Valid)
	require.NotEmpty(t, r.Warnings)
	assert.Contains(t, r.Warnings[0].Message, "bdg.yaml")
}

func TestEmptyFileListIsError(t *testing.T) {
	cfg := validConfig(t)
	cfg.Upload.Files = nil
	r := New(cfg, nil, nil).Validate()

	assert.False(t, r.Valid)
}

func TestUninitializedRepoIsWarning(t *testing.T) {
	cfg := validConfig(t)
	r := New(cfg, stubRepo{initialized: false}, nil).Validate()

	assert.True(t, r.Valid)
	found := false
	for _, w := range r.Warnings {
		if w.Category == "repo" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMissingCredentialIsWarning(t *testing.T) {
	cfg := validConfig(t)
	r := New(cfg, nil, stubCreds{}).Validate()

	assert.True(t, r.Valid)
	found := false
	for _, w := range r.Warnings {
		if w.Category == "credentials" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestShortIntervalIsWarning(t *testing.T) {
	cfg := validConfig(t)
	cfg.Upload.Interval = 10 * time.Second
	r := New(cfg, nil, nil).Validate()

	assert.True(t, r.Valid)
	require.NotEmpty(t, r.Warnings)
	assert.Equal(t, "schedule", r.Warnings[0].Category)
}

func TestAPIWithoutKeyIsWarning(t *testing.T) {
	cfg := validConfig(t)
	cfg.API.Enabled = true
	r := New(cfg, nil, nil).Validate()

	assert.True(t, r.Valid)
	found := false
	for _, w := range r.Warnings {
		if w.Category == "api" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAPIEnabledWithoutListenIsError(t *testing.T) {
	cfg := validConfig(t)
	cfg.API.Enabled = true
	cfg.API.Listen = ""
	r := New(cfg, nil, nil).Validate()

	assert.False(t, r.Valid)
}
