package jrchat

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	defaults "github.com/codingjr/jrchat/default"
)

// Config represents the jrchat host configuration.
type Config struct {
	Version   int             `json:"version"`
	Gemini    GeminiConfig    `json:"gemini"`
	Workspace WorkspaceConfig `json:"workspace"`
	Storage   StorageConfig   `json:"storage"`
}

// GeminiConfig holds settings for the generation API.
type GeminiConfig struct {
	BaseURL         string   `json:"base_url"`
	APIKey          string   `json:"api_key"`
	Model           string   `json:"model"`
	Backend         string   `json:"backend"` // "rest" or "sdk"
	// Temperature and TopP are pointers so an explicit 0 is kept.
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"top_p,omitempty"`
	TopK            int      `json:"top_k,omitempty"`
	MaxOutputTokens int      `json:"max_output_tokens,omitempty"`
	TimeoutSeconds  int      `json:"timeout_seconds,omitempty"`
}

// WorkspaceConfig controls file suggestions for "@" references.
type WorkspaceConfig struct {
	Root            string `json:"root"`
	MaxSuggestions  int    `json:"max_suggestions,omitempty"`
	CacheTTLSeconds int    `json:"cache_ttl_seconds,omitempty"`
}

// StorageConfig selects where surfaces persist their conversation.
type StorageConfig struct {
	Driver    string `json:"driver"` // file, memory, redis, sqlite3, mysql
	Path      string `json:"path,omitempty"`
	DSN       string `json:"dsn,omitempty"`
	RedisAddr string `json:"redis_addr,omitempty"`
}

// ConfigDir returns the config directory path.
// Resolution order: $JRCHAT_CONFIG_DIR > $XDG_CONFIG_HOME/jrchat > ~/.config/jrchat
func ConfigDir() string {
	if dir := os.Getenv("JRCHAT_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "jrchat")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "jrchat-config")
	}
	return filepath.Join(home, ".config", "jrchat")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// DefaultConfig returns the default configuration from the embedded default_config.json.
func DefaultConfig() *Config {
	var cfg Config
	if err := json.Unmarshal(defaults.DefaultConfigJSON, &cfg); err != nil {
		panic("jrchat: invalid embedded default_config.json: " + err.Error())
	}
	return &cfg
}

// LoadConfig loads config from disk or returns defaults if not found.
func LoadConfig() (*Config, error) {
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing fields
	d := DefaultConfig()
	if cfg.Gemini.BaseURL == "" {
		cfg.Gemini.BaseURL = d.Gemini.BaseURL
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = d.Gemini.Model
	}
	if cfg.Gemini.Backend == "" {
		cfg.Gemini.Backend = d.Gemini.Backend
	}
	if cfg.Gemini.Temperature == nil {
		cfg.Gemini.Temperature = d.Gemini.Temperature
	}
	if cfg.Gemini.TopP == nil {
		cfg.Gemini.TopP = d.Gemini.TopP
	}
	if cfg.Gemini.TopK == 0 {
		cfg.Gemini.TopK = d.Gemini.TopK
	}
	if cfg.Gemini.MaxOutputTokens == 0 {
		cfg.Gemini.MaxOutputTokens = d.Gemini.MaxOutputTokens
	}
	if cfg.Gemini.TimeoutSeconds == 0 {
		cfg.Gemini.TimeoutSeconds = d.Gemini.TimeoutSeconds
	}
	if cfg.Workspace.MaxSuggestions == 0 {
		cfg.Workspace.MaxSuggestions = d.Workspace.MaxSuggestions
	}
	if cfg.Workspace.CacheTTLSeconds == 0 {
		cfg.Workspace.CacheTTLSeconds = d.Workspace.CacheTTLSeconds
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = d.Storage.Driver
	}

	return &cfg, nil
}

// ValidateConfig checks configuration for potential issues and returns warnings.
func ValidateConfig(cfg *Config) []string {
	var warnings []string
	if cfg == nil {
		return warnings
	}
	if ResolveAPIKey(cfg) == "" {
		warnings = append(warnings, "gemini api_key is not configured; prompts will be rejected until it is set")
	}
	switch cfg.Gemini.Backend {
	case "", "rest", "sdk":
	default:
		warnings = append(warnings, "unknown gemini backend "+cfg.Gemini.Backend+"; falling back to rest")
	}
	switch cfg.Storage.Driver {
	case "", "file", "memory":
	case "redis":
		if cfg.Storage.RedisAddr == "" {
			warnings = append(warnings, "storage driver redis requires redis_addr")
		}
	case "sqlite3", "mysql":
		if cfg.Storage.DSN == "" {
			warnings = append(warnings, "storage driver "+cfg.Storage.Driver+" requires dsn")
		}
	default:
		warnings = append(warnings, "unknown storage driver "+cfg.Storage.Driver)
	}
	return warnings
}

// SocketPath returns the host's Unix socket path.
// Resolution order: $JRCHAT_SOCKET > $XDG_RUNTIME_DIR/jrchat.sock > /tmp/jrchat-<uid>.sock
func SocketPath() string {
	if path := os.Getenv("JRCHAT_SOCKET"); path != "" {
		return path
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "jrchat.sock")
	}
	return fmt.Sprintf("/tmp/jrchat-%d.sock", os.Getuid())
}

// ResolveBaseURL returns the generation API base URL.
// Priority: $JRCHAT_GEMINI_BASE_URL env > config value.
func ResolveBaseURL(cfg *Config) string {
	if url := os.Getenv("JRCHAT_GEMINI_BASE_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Gemini.BaseURL
	}
	return ""
}

// ResolveAPIKey returns the generation API key.
// Priority: $JRCHAT_GEMINI_API_KEY env > config value.
func ResolveAPIKey(cfg *Config) string {
	if key := os.Getenv("JRCHAT_GEMINI_API_KEY"); key != "" {
		return key
	}
	if cfg != nil {
		return cfg.Gemini.APIKey
	}
	return ""
}

// ResolveModel returns the generation model name.
// Priority: $JRCHAT_GEMINI_MODEL env > config value.
func ResolveModel(cfg *Config) string {
	if model := os.Getenv("JRCHAT_GEMINI_MODEL"); model != "" {
		return model
	}
	if cfg != nil {
		return cfg.Gemini.Model
	}
	return ""
}

// ResolveWorkspaceRoot returns the directory offered for "@" file references.
// Priority: $JRCHAT_WORKSPACE env > config value > current directory.
func ResolveWorkspaceRoot(cfg *Config) string {
	if root := os.Getenv("JRCHAT_WORKSPACE"); root != "" {
		return root
	}
	if cfg != nil && cfg.Workspace.Root != "" {
		return cfg.Workspace.Root
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// RequestTimeout returns the timeout applied to a single generation call.
func RequestTimeout(cfg *Config) time.Duration {
	if cfg == nil || cfg.Gemini.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(cfg.Gemini.TimeoutSeconds) * time.Second
}

// CacheTTL returns how long a workspace listing stays cached.
func CacheTTL(cfg *Config) time.Duration {
	if cfg == nil || cfg.Workspace.CacheTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(cfg.Workspace.CacheTTLSeconds) * time.Second
}
