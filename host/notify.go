package host

import (
	"log/slog"

	"github.com/codingjr/jrchat"
)

// Notifier shows host-side notifications. Implementations must not block
// the caller waiting for user interaction.
type Notifier interface {
	// MissingCredential offers to open the settings that hold the API key.
	MissingCredential()
	// RequestFailed reports a failed generation call. msg is already redacted.
	RequestFailed(msg string)
}

// LogNotifier writes notifications to the host log.
type LogNotifier struct{}

func (LogNotifier) MissingCredential() {
	slog.Warn("Gemini API key not found, open settings to add it",
		"config", jrchat.ConfigPath(), "env", "JRCHAT_GEMINI_API_KEY")
}

func (LogNotifier) RequestFailed(msg string) {
	slog.Error("Gemini API error", "error", msg)
}
