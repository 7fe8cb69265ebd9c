// Package credentials resolves the git identity used to authenticate
// against the hosted remote. The engine only forwards credentials into
// authenticated operations; it never persists or inspects them.
package credentials

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted by the env provider.
const (
	EnvUsername = "VPN2GH_GIT_USERNAME"
	EnvToken    = "VPN2GH_GIT_TOKEN"
)

// Credential carries a username and an access token for the remote.
type Credential struct {
	Username string
	Token    string
}

// IsZero reports whether no token is present.
func (c Credential) IsZero() bool {
	return c.Token == ""
}

// Provider supplies a credential on demand. Providers are consulted fresh on
// every sync attempt; a prior session's credential is never assumed valid.
type Provider interface {
	Credential() (Credential, error)
}

// EnvProvider reads the credential from process environment variables.
type EnvProvider struct{}

func (EnvProvider) Credential() (Credential, error) {
	cred := Credential{
		Username: os.Getenv(EnvUsername),
		Token:    os.Getenv(EnvToken),
	}
	if cred.IsZero() {
		return Credential{}, fmt.Errorf("%s is not set", EnvToken)
	}
	return cred, nil
}

// FileProvider reads "username:token" (or just a token) from the first line
// of a file. The file should be mode 0600; ownership of that is on the
// operator.
type FileProvider struct {
	Path     string
	Username string
}

func (p FileProvider) Credential() (Credential, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return Credential{}, fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return Credential{}, fmt.Errorf("token file %s is empty", p.Path)
	}
	line := strings.TrimSpace(scanner.Text())
	if line == "" {
		return Credential{}, fmt.Errorf("token file %s is empty", p.Path)
	}

	cred := Credential{Username: p.Username}
	if user, token, ok := strings.Cut(line, ":"); ok {
		cred.Username = user
		cred.Token = token
	} else {
		cred.Token = line
	}
	return cred, nil
}

// Chain consults providers in order and returns the first credential found.
type Chain []Provider

func (c Chain) Credential() (Credential, error) {
	var lastErr error
	for _, p := range c {
		cred, err := p.Credential()
		if err == nil {
			return cred, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no credential providers configured")
	}
	return Credential{}, lastErr
}
