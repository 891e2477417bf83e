package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/codingjr/jrchat"
	"github.com/codingjr/jrchat/channel"
	"github.com/codingjr/jrchat/generate"
	"github.com/codingjr/jrchat/host"
	"github.com/codingjr/jrchat/workspace"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Server accepts surface connections on a Unix domain socket and,
// optionally, as websockets over HTTP.
type Server struct {
	listener net.Listener
	sockPath string
	host     *host.Host
	closers  []func()

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer creates a server bound to sockPath, configured from cfg.
func NewServer(sockPath string, cfg *jrchat.Config) (*Server, error) {
	gen, err := generate.New(cfg.Gemini.Backend, generate.OptionsFromConfig(cfg))
	if err != nil {
		return nil, err
	}
	lister := workspace.NewLister(jrchat.ResolveWorkspaceRoot(cfg), cfg.Workspace.MaxSuggestions, jrchat.CacheTTL(cfg))
	srv, err := NewServerWithOptions(sockPath, host.Options{
		Generator:   gen,
		Credentials: host.ConfigCredentials{},
		Notifier:    host.LogNotifier{},
		Files:       lister,
	})
	if err != nil {
		lister.Close()
		return nil, err
	}
	srv.closers = append(srv.closers, lister.Close)
	return srv, nil
}

// NewServerWithOptions creates a server with explicit host collaborators.
func NewServerWithOptions(sockPath string, opts host.Options) (*Server, error) {
	// Remove stale socket file if it exists
	if err := os.Remove(sockPath); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(sockPath, 0o600); err != nil {
		listener.Close()
		return nil, err
	}

	return &Server{
		listener: listener,
		sockPath: sockPath,
		host:     host.NewHost(opts),
	}, nil
}

// Serve accepts socket connections until the listener closes.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	id := uuid.NewString()
	slog.Debug("socket connection", "conn", id)
	if err := s.host.Attach(context.Background(), id, channel.NewStream(conn)); err != nil {
		slog.Warn("session ended with error", "conn", id, "error", err)
	}
}

// Router returns the HTTP routes: /healthz and the /ws surface endpoint.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": Version})
	})
	r.GET("/ws", s.handleWebSocket)
	return r
}

var upgrader = websocket.Upgrader{
	CheckOrigin: allowedOrigin,
}

// allowedOrigin accepts editor webviews and pages served from loopback.
func allowedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || strings.HasPrefix(origin, "vscode-webview://") {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	id := uuid.NewString()
	slog.Debug("websocket connection", "conn", id, "remote", c.Request.RemoteAddr)
	if err := s.host.Attach(context.Background(), id, channel.NewWebSocket(conn)); err != nil {
		slog.Warn("session ended with error", "conn", id, "error", err)
	}
}

// ListenHTTP serves Router on addr until Close.
func (s *Server) ListenHTTP(addr string) error {
	hs := &http.Server{Addr: addr, Handler: s.Router()}
	s.mu.Lock()
	s.httpServer = hs
	s.mu.Unlock()

	err := hs.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close ends the active session, stops listeners and removes the socket file.
func (s *Server) Close() {
	s.listener.Close()
	s.mu.Lock()
	hs := s.httpServer
	s.mu.Unlock()
	if hs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		hs.Shutdown(ctx)
		cancel()
	}
	s.host.Close()
	for _, fn := range s.closers {
		fn()
	}
	os.Remove(s.sockPath)
}
