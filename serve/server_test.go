package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/codingjr/jrchat"
	"github.com/codingjr/jrchat/generate"
	"github.com/codingjr/jrchat/host"
	"github.com/gorilla/websocket"
)

// stubGenerator echoes the prompt back.
type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, req generate.Request) (string, error) {
	return "echo: " + req.Prompt, nil
}

type stubFiles []string

func (f stubFiles) List(_ context.Context, prefix string) ([]string, error) {
	var out []string
	for _, p := range f {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	return out, nil
}

var testSocketCounter atomic.Int64

func newTestServer(t *testing.T, opts host.Options) *Server {
	t.Helper()
	// Use /tmp directly to avoid macOS 104-char Unix socket path limit
	n := testSocketCounter.Add(1)
	sockPath := fmt.Sprintf("/tmp/jrchat-t%d-%d.sock", os.Getpid(), n)
	srv, err := NewServerWithOptions(sockPath, opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { srv.Close() })
	go srv.Serve()
	return srv
}

func defaultOptions() host.Options {
	return host.Options{
		Generator:   stubGenerator{},
		Credentials: host.StaticCredentials("k"),
		Files:       stubFiles{"src/App.tsx", "src/index.ts"},
	}
}

type socketClient struct {
	conn    net.Conn
	scanner *bufio.Scanner
}

func dial(t *testing.T, sockPath string) *socketClient {
	t.Helper()
	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return &socketClient{conn: conn, scanner: bufio.NewScanner(conn)}
}

func (c *socketClient) send(t *testing.T, raw string) {
	t.Helper()
	if _, err := c.conn.Write([]byte(raw + "\n")); err != nil {
		t.Fatal(err)
	}
}

func (c *socketClient) recv(t *testing.T) jrchat.Envelope {
	t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if !c.scanner.Scan() {
		t.Fatalf("no message from server: %v", c.scanner.Err())
	}
	var env jrchat.Envelope
	if err := json.Unmarshal(c.scanner.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	return env
}

func TestSocketPromptRoundTrip(t *testing.T) {
	srv := newTestServer(t, defaultOptions())
	c := dial(t, srv.sockPath)

	c.send(t, `{"command":"prompt","text":"make a button"}`)
	env := c.recv(t)
	if env.Kind() != jrchat.KindResponse || env.Text != "echo: make a button" {
		t.Errorf("got %+v", env)
	}
}

func TestSocketSkipsMalformedLines(t *testing.T) {
	srv := newTestServer(t, defaultOptions())
	c := dial(t, srv.sockPath)

	c.send(t, `this is not json`)
	c.send(t, `{"command":"generateCode","prompt":"legacy"}`)
	c.send(t, `{"command":"requestFileList","prefix":"src/A"}`)

	env := c.recv(t)
	if env.Kind() != jrchat.KindFileList || len(env.Payload) != 1 || env.Payload[0] != "src/App.tsx" {
		t.Errorf("got %+v", env)
	}
}

func TestSocketMissingCredential(t *testing.T) {
	opts := defaultOptions()
	opts.Credentials = host.StaticCredentials("")
	srv := newTestServer(t, opts)
	c := dial(t, srv.sockPath)

	c.send(t, `{"command":"prompt","text":"make a button"}`)
	env := c.recv(t)
	if env.Kind() != jrchat.KindError || env.Code != jrchat.CodeNotConfigured {
		t.Errorf("got %+v", env)
	}
}

func TestSocketNewConnectionReplacesOld(t *testing.T) {
	srv := newTestServer(t, defaultOptions())
	first := dial(t, srv.sockPath)
	first.send(t, `{"command":"requestFileList","prefix":""}`)
	first.recv(t)

	second := dial(t, srv.sockPath)
	second.send(t, `{"command":"prompt","text":"hi"}`)
	if env := second.recv(t); env.Text != "echo: hi" {
		t.Errorf("got %+v", env)
	}

	first.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if first.scanner.Scan() {
		t.Errorf("expected first connection to be closed, got %s", first.scanner.Text())
	}
}

func TestSocketFilePermissions(t *testing.T) {
	srv := newTestServer(t, defaultOptions())
	info, err := os.Stat(srv.sockPath)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("socket perm = %v", perm)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, defaultOptions())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestWebSocketPromptRoundTrip(t *testing.T) {
	srv := newTestServer(t, defaultOptions())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(jrchat.Prompt("make a card", nil)); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var env jrchat.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatal(err)
	}
	if env.Kind() != jrchat.KindResponse || env.Text != "echo: make a card" {
		t.Errorf("got %+v", env)
	}
}

func TestAllowedOrigin(t *testing.T) {
	tests := map[string]bool{
		"":                               true,
		"vscode-webview://abc123":        true,
		"http://localhost:3000":          true,
		"http://127.0.0.1:8787":          true,
		"https://evil.example.com":       false,
		"http://localhost.evil.com:3000": false,
	}
	for origin, want := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		if got := allowedOrigin(r); got != want {
			t.Errorf("allowedOrigin(%q) = %v, want %v", origin, got, want)
		}
	}
}
