package generate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codingjr/jrchat"
)

type capturedRequest struct {
	Path  string
	Query string
	Body  map[string]any
}

func newGeminiServer(t *testing.T, status int, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}
		captured.Path = r.URL.Path
		captured.Query = r.URL.RawQuery
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &captured.Body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestGenerateSuccess(t *testing.T) {
	srv, captured := newGeminiServer(t, 200,
		`{"candidates":[{"content":{"parts":[{"text":"<Button/>"}]}}]}`)

	c := NewClient(Options{BaseURL: srv.URL + "/v1beta"})
	got, err := c.Generate(context.Background(), Request{APIKey: "k123", Prompt: "make a button"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "<Button/>" {
		t.Errorf("got %q", got)
	}

	if captured.Path != "/v1beta/models/gemini-1.5-flash:generateContent" {
		t.Errorf("path = %q", captured.Path)
	}
	if captured.Query != "key=k123" {
		t.Errorf("query = %q", captured.Query)
	}

	contents := captured.Body["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	if text := parts[0].(map[string]any)["text"]; text != "make a button" {
		t.Errorf("prompt text = %v", text)
	}
	cfg := captured.Body["generationConfig"].(map[string]any)
	want := map[string]float64{"temperature": 0.7, "topP": 0.8, "topK": 40, "maxOutputTokens": 2048}
	for k, v := range want {
		if cfg[k] != v {
			t.Errorf("generationConfig.%s = %v, want %v", k, cfg[k], v)
		}
	}
}

func TestGenerateSendsExplicitZeroTemperature(t *testing.T) {
	srv, captured := newGeminiServer(t, 200,
		`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)

	zero := 0.0
	c := NewClient(Options{BaseURL: srv.URL, Temperature: &zero})
	if _, err := c.Generate(context.Background(), Request{APIKey: "k", Prompt: "hi"}); err != nil {
		t.Fatal(err)
	}
	cfg := captured.Body["generationConfig"].(map[string]any)
	if cfg["temperature"] != 0.0 {
		t.Errorf("temperature = %v, want 0", cfg["temperature"])
	}
	if cfg["topP"] != 0.8 {
		t.Errorf("topP = %v, want default 0.8", cfg["topP"])
	}
}

func TestGenerateErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message from body", 429, `{"error":{"code":429,"message":"rate limited","status":"RESOURCE_EXHAUSTED"}}`, "rate limited"},
		{"no message", 500, `{"error":{}}`, "Gemini API request failed: 500 Internal Server Error"},
		{"non json", 502, `<html>bad gateway</html>`, "Gemini API request failed: 502 Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newGeminiServer(t, tt.status, tt.body)
			c := NewClient(Options{BaseURL: srv.URL})
			_, err := c.Generate(context.Background(), Request{APIKey: "k", Prompt: "hi"})

			var perr *ProtocolError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ProtocolError, got %T %v", err, err)
			}
			if perr.Message != tt.want {
				t.Errorf("message = %q, want %q", perr.Message, tt.want)
			}
			if perr.Status != tt.status {
				t.Errorf("status = %d, want %d", perr.Status, tt.status)
			}
		})
	}
}

func TestGenerateInvalidFormat(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"candidates":[]}`,
		`{"candidates":[{"content":{"parts":[]}}]}`,
		`{"candidates":[{"content":{"parts":[{"text":""}]}}]}`,
		`not json`,
	}
	for _, body := range bodies {
		srv, _ := newGeminiServer(t, 200, body)
		c := NewClient(Options{BaseURL: srv.URL})
		_, err := c.Generate(context.Background(), Request{APIKey: "k", Prompt: "hi"})

		var perr *ProtocolError
		if !errors.As(err, &perr) || perr.Message != "Invalid response format from Gemini API" {
			t.Errorf("body %s: got %v", body, err)
		}
	}
}

func TestGenerateTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(Options{BaseURL: url})
	_, err := c.Generate(context.Background(), Request{APIKey: "secretkey", Prompt: "hi"})

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %T %v", err, err)
	}
}

func TestGenerateTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.Generate(context.Background(), Request{APIKey: "k", Prompt: "hi"})

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %T %v", err, err)
	}
}

func TestSplitAPIVersion(t *testing.T) {
	tests := []struct {
		base, root, version string
	}{
		{"https://generativelanguage.googleapis.com/v1beta", "https://generativelanguage.googleapis.com/", "v1beta"},
		{"http://127.0.0.1:8080/v1/", "http://127.0.0.1:8080/", "v1"},
		{"http://127.0.0.1:8080", "http://127.0.0.1:8080/", ""},
	}
	for _, tt := range tests {
		root, version := splitAPIVersion(tt.base)
		if root != tt.root || version != tt.version {
			t.Errorf("splitAPIVersion(%q) = (%q, %q), want (%q, %q)", tt.base, root, version, tt.root, tt.version)
		}
	}
}

func TestSDKClientSuccess(t *testing.T) {
	srv, captured := newGeminiServer(t, 200,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"card"}]}}]}`)

	c := NewSDKClient(Options{BaseURL: srv.URL + "/v1beta"})
	got, err := c.Generate(context.Background(), Request{APIKey: "k", Prompt: "make a card"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "card" {
		t.Errorf("got %q", got)
	}
	if !strings.HasSuffix(captured.Path, "/models/gemini-1.5-flash:generateContent") {
		t.Errorf("path = %q", captured.Path)
	}
}

func TestSDKClientAPIError(t *testing.T) {
	srv, _ := newGeminiServer(t, 429, `{"error":{"code":429,"message":"rate limited","status":"RESOURCE_EXHAUSTED"}}`)

	c := NewSDKClient(Options{BaseURL: srv.URL + "/v1beta"})
	_, err := c.Generate(context.Background(), Request{APIKey: "k", Prompt: "hi"})

	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProtocolError, got %T %v", err, err)
	}
	if perr.Message != "rate limited" {
		t.Errorf("message = %q", perr.Message)
	}
}

func TestNewBackend(t *testing.T) {
	if g, err := New("", Options{}); err != nil {
		t.Error(err)
	} else if _, ok := g.(*Client); !ok {
		t.Errorf("default backend is %T", g)
	}
	if g, err := New("sdk", Options{}); err != nil {
		t.Error(err)
	} else if _, ok := g.(*SDKClient); !ok {
		t.Errorf("sdk backend is %T", g)
	}
	if _, err := New("grpc", Options{}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	t.Setenv("JRCHAT_GEMINI_MODEL", "gemini-2.0-flash")
	t.Setenv("JRCHAT_GEMINI_BASE_URL", "")
	opts := OptionsFromConfig(jrchat.DefaultConfig())
	if opts.Model != "gemini-2.0-flash" {
		t.Errorf("model = %q", opts.Model)
	}
	if opts.BaseURL != DefaultBaseURL {
		t.Errorf("base = %q", opts.BaseURL)
	}
	if opts.Timeout != 60*time.Second {
		t.Errorf("timeout = %v", opts.Timeout)
	}
	if opts.Temperature == nil || *opts.Temperature != 0.7 {
		t.Errorf("temperature = %v", opts.Temperature)
	}
}
