package host

import (
	"errors"
	"fmt"

	"github.com/codingjr/jrchat"
)

// ErrNotConfigured reports that no API key is available.
var ErrNotConfigured = errors.New("Gemini API key is not configured")

// ConfigurationError is returned before any outbound call when the host
// cannot issue one. It wraps ErrNotConfigured.
type ConfigurationError struct {
	// Cause is set when reading the configuration itself failed.
	Cause error
}

func (e *ConfigurationError) Error() string {
	hint := fmt.Sprintf("Please set your Gemini API key (gemini.api_key in %s or $JRCHAT_GEMINI_API_KEY)", jrchat.ConfigPath())
	if e.Cause != nil {
		return hint + ": " + e.Cause.Error()
	}
	return hint
}

func (e *ConfigurationError) Unwrap() error { return ErrNotConfigured }
