package jrchat

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Gemini.Model != "gemini-1.5-flash" {
		t.Errorf("model = %q", cfg.Gemini.Model)
	}
	if cfg.Gemini.BaseURL != "https://generativelanguage.googleapis.com/v1beta" {
		t.Errorf("base_url = %q", cfg.Gemini.BaseURL)
	}
	if cfg.Gemini.Temperature == nil || *cfg.Gemini.Temperature != 0.7 || cfg.Gemini.TopP == nil || *cfg.Gemini.TopP != 0.8 || cfg.Gemini.TopK != 40 || cfg.Gemini.MaxOutputTokens != 2048 {
		t.Errorf("unexpected generation config: %+v", cfg.Gemini)
	}
	if cfg.Gemini.APIKey != "" {
		t.Error("default config must not carry an api key")
	}
	if cfg.Storage.Driver != "file" {
		t.Errorf("storage driver = %q", cfg.Storage.Driver)
	}
}

func TestConfigDirResolution(t *testing.T) {
	t.Setenv("JRCHAT_CONFIG_DIR", "/custom/dir")
	if got := ConfigDir(); got != "/custom/dir" {
		t.Errorf("got %q", got)
	}

	t.Setenv("JRCHAT_CONFIG_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := ConfigDir(); got != filepath.Join("/xdg", "jrchat") {
		t.Errorf("got %q", got)
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("JRCHAT_CONFIG_DIR", t.TempDir())
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Gemini.Model != DefaultConfig().Gemini.Model {
		t.Errorf("model = %q", cfg.Gemini.Model)
	}
}

func TestLoadConfigFillsMissingFields(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("JRCHAT_CONFIG_DIR", dir)
	data := []byte(`{"gemini":{"api_key":"abc","model":"gemini-2.0-flash"}}`)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Gemini.APIKey != "abc" {
		t.Errorf("api_key = %q", cfg.Gemini.APIKey)
	}
	if cfg.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("model = %q", cfg.Gemini.Model)
	}
	if cfg.Gemini.TopK != 40 {
		t.Errorf("top_k not defaulted: %d", cfg.Gemini.TopK)
	}
	if cfg.Gemini.Backend != "rest" {
		t.Errorf("backend not defaulted: %q", cfg.Gemini.Backend)
	}
	if cfg.Workspace.MaxSuggestions != 50 {
		t.Errorf("max_suggestions not defaulted: %d", cfg.Workspace.MaxSuggestions)
	}
}

func TestLoadConfigKeepsExplicitZeroTemperature(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("JRCHAT_CONFIG_DIR", dir)
	data := []byte(`{"gemini":{"temperature":0}}`)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Gemini.Temperature == nil || *cfg.Gemini.Temperature != 0 {
		t.Errorf("temperature = %v, want explicit 0", cfg.Gemini.Temperature)
	}
	if cfg.Gemini.TopP == nil || *cfg.Gemini.TopP != 0.8 {
		t.Errorf("top_p not defaulted: %v", cfg.Gemini.TopP)
	}
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("JRCHAT_CONFIG_DIR", dir)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(); err == nil {
		t.Error("expected error for invalid json")
	}
}

func TestResolveAPIKeyEnvWins(t *testing.T) {
	cfg := &Config{Gemini: GeminiConfig{APIKey: "from-config"}}

	t.Setenv("JRCHAT_GEMINI_API_KEY", "")
	if got := ResolveAPIKey(cfg); got != "from-config" {
		t.Errorf("got %q", got)
	}

	t.Setenv("JRCHAT_GEMINI_API_KEY", "from-env")
	if got := ResolveAPIKey(cfg); got != "from-env" {
		t.Errorf("got %q", got)
	}

	t.Setenv("JRCHAT_GEMINI_API_KEY", "")
	if got := ResolveAPIKey(nil); got != "" {
		t.Errorf("got %q for nil config", got)
	}
}

func TestValidateConfig(t *testing.T) {
	t.Setenv("JRCHAT_GEMINI_API_KEY", "")

	tests := []struct {
		name string
		cfg  *Config
		want int
	}{
		{"nil", nil, 0},
		{"configured", &Config{Gemini: GeminiConfig{APIKey: "k", Backend: "rest"}, Storage: StorageConfig{Driver: "file"}}, 0},
		{"missing key", &Config{Storage: StorageConfig{Driver: "file"}}, 1},
		{"redis without addr", &Config{Gemini: GeminiConfig{APIKey: "k"}, Storage: StorageConfig{Driver: "redis"}}, 1},
		{"sqlite without dsn", &Config{Gemini: GeminiConfig{APIKey: "k"}, Storage: StorageConfig{Driver: "sqlite3"}}, 1},
		{"unknown everything", &Config{Gemini: GeminiConfig{Backend: "grpc"}, Storage: StorageConfig{Driver: "etcd"}}, 3},
	}
	for _, tt := range tests {
		if got := ValidateConfig(tt.cfg); len(got) != tt.want {
			t.Errorf("%s: got %d warnings %v, want %d", tt.name, len(got), got, tt.want)
		}
	}
}

func TestRequestTimeout(t *testing.T) {
	if got := RequestTimeout(nil); got != 60*time.Second {
		t.Errorf("got %v", got)
	}
	cfg := &Config{Gemini: GeminiConfig{TimeoutSeconds: 5}}
	if got := RequestTimeout(cfg); got != 5*time.Second {
		t.Errorf("got %v", got)
	}
}

func TestSocketPath(t *testing.T) {
	tests := []struct {
		name     string
		socket   string
		runtime  string
		expected string
	}{
		{"JRCHAT_SOCKET", "/custom/jrchat.sock", "/run/user/1000", "/custom/jrchat.sock"},
		{"XDG_RUNTIME_DIR", "", "/run/user/1000", "/run/user/1000/jrchat.sock"},
		{"fallback", "", "", fmt.Sprintf("/tmp/jrchat-%d.sock", os.Getuid())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JRCHAT_SOCKET", tt.socket)
			t.Setenv("XDG_RUNTIME_DIR", tt.runtime)
			if got := SocketPath(); got != tt.expected {
				t.Errorf("SocketPath() = %s, expected %s", got, tt.expected)
			}
		})
	}
}
