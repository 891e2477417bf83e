// Command jrchatd is the jrchat host daemon.
// It accepts chat surface connections on a Unix domain socket (and optionally
// websockets), forwards prompts to the Gemini API, and relays the answers.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/codingjr/jrchat"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	verbose := flag.Bool("verbose", false, "log every message sent and received")
	httpAddr := flag.String("http", "", "also serve websocket surfaces on this address (e.g. 127.0.0.1:8787)")
	flag.Parse()

	if *showVersion {
		fmt.Println("jrchatd", Version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := jrchat.LoadConfig()
	if err != nil {
		slog.Warn("failed to load config, using defaults", "error", err)
		cfg = jrchat.DefaultConfig()
	}
	for _, w := range jrchat.ValidateConfig(cfg) {
		slog.Warn("config", "warning", w)
	}

	socketPath := jrchat.SocketPath()

	slog.Info("starting", "socket", socketPath, "model", jrchat.ResolveModel(cfg), "backend", cfg.Gemini.Backend)

	srv, err := NewServer(socketPath, cfg)
	if err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}
	defer srv.Close()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		slog.Info("shutting down")
		srv.Close()
		os.Exit(0)
	}()

	if *httpAddr != "" {
		go func() {
			slog.Info("serving websocket surfaces", "addr", *httpAddr)
			if err := srv.ListenHTTP(*httpAddr); err != nil {
				slog.Error("http server error", "error", err)
			}
		}()
	}

	slog.Info("ready")
	if err := srv.Serve(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
