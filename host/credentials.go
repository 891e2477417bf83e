package host

import (
	"strings"

	"github.com/codingjr/jrchat"
)

// CredentialSource yields the API key for a single request.
type CredentialSource interface {
	APIKey() (string, error)
}

// ConfigCredentials reads the key from the config file and environment on
// every call, so edits take effect on the next prompt.
type ConfigCredentials struct{}

func (ConfigCredentials) APIKey() (string, error) {
	cfg, err := jrchat.LoadConfig()
	if err != nil {
		return "", &ConfigurationError{Cause: err}
	}
	key := strings.TrimSpace(jrchat.ResolveAPIKey(cfg))
	if key == "" {
		return "", &ConfigurationError{}
	}
	return key, nil
}

// StaticCredentials always returns the same key. An empty key is unconfigured.
type StaticCredentials string

func (s StaticCredentials) APIKey() (string, error) {
	if s == "" {
		return "", &ConfigurationError{}
	}
	return string(s), nil
}
