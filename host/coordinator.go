// Package host runs the privileged side of a chat surface connection: it
// accepts prompts, calls the generation API and relays one outcome per prompt.
package host

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/codingjr/jrchat"
	"github.com/codingjr/jrchat/channel"
	"github.com/codingjr/jrchat/generate"
	"github.com/codingjr/jrchat/redact"
)

// State is the coordinator's request state.
type State int32

const (
	Idle State = iota
	AwaitingResponse
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingResponse:
		return "awaiting_response"
	default:
		return "unknown"
	}
}

// FileLister answers "@" file suggestion requests.
type FileLister interface {
	List(ctx context.Context, prefix string) ([]string, error)
}

// Options holds the collaborators of a Coordinator.
type Options struct {
	Generator   generate.Generator
	Credentials CredentialSource
	// Notifier defaults to LogNotifier.
	Notifier Notifier
	// Files may be nil, in which case file list requests get an empty reply.
	Files FileLister
}

// inFlight is the single outstanding request of a session.
type inFlight struct {
	prompt string
	apiKey string
}

type (
	inbound struct {
		env jrchat.Envelope
	}
	closed struct {
		err error
	}
	generated struct {
		text string
		err  error
	}
	listed struct {
		prefix string
		paths  []string
		err    error
	}
)

// Coordinator serves one surface connection. All state is owned by the Run
// loop, and only the loop writes to the channel.
type Coordinator struct {
	ch   channel.Channel
	opts Options

	events chan any
	quit   chan struct{}
	state  atomic.Int32

	pending *inFlight
}

// New creates a coordinator for ch. Call Run to start serving.
func New(ch channel.Channel, opts Options) *Coordinator {
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{}
	}
	if opts.Credentials == nil {
		opts.Credentials = ConfigCredentials{}
	}
	return &Coordinator{
		ch:     ch,
		opts:   opts,
		events: make(chan any, 16),
		quit:   make(chan struct{}),
	}
}

// State returns the current request state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Run serves the channel until the peer goes away or ctx is cancelled.
// A generation call still running when Run returns is left to finish and
// its result is discarded.
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.quit)

	go func() {
		for {
			env, err := c.ch.Recv()
			if err != nil {
				c.post(closed{err: err})
				return
			}
			c.post(inbound{env: env})
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.events:
			switch ev := ev.(type) {
			case inbound:
				c.handle(ctx, ev.env)
			case generated:
				c.finish(ev)
			case listed:
				c.sendFileList(ev)
			case closed:
				if errors.Is(ev.err, channel.ErrClosed) {
					return nil
				}
				return ev.err
			}
		}
	}
}

func (c *Coordinator) post(ev any) {
	select {
	case c.events <- ev:
	case <-c.quit:
	}
}

func (c *Coordinator) setState(s State) {
	c.state.Store(int32(s))
}

func (c *Coordinator) handle(ctx context.Context, env jrchat.Envelope) {
	switch env.Kind() {
	case jrchat.KindPrompt:
		c.handlePrompt(ctx, env)
	case jrchat.KindRequestFileList:
		c.handleFileList(ctx, env.Prefix)
	default:
		slog.Warn("unknown command", "command", env.Kind())
	}
}

func (c *Coordinator) handlePrompt(ctx context.Context, env jrchat.Envelope) {
	text := strings.TrimSpace(env.Text)
	if text == "" {
		slog.Debug("dropping empty prompt")
		return
	}

	// Replies carry no request id, so a second prompt is not answered at all.
	if c.State() == AwaitingResponse {
		slog.Warn("prompt rejected, a request is already in flight")
		return
	}

	key, err := c.opts.Credentials.APIKey()
	if err == nil && key == "" {
		err = &ConfigurationError{}
	}
	if err != nil {
		c.opts.Notifier.MissingCredential()
		c.fail(err)
		return
	}

	req := generate.Request{
		APIKey: key,
		Prompt: generate.BuildPrompt(text, env.Files),
	}
	c.pending = &inFlight{prompt: text, apiKey: key}
	c.setState(AwaitingResponse)
	slog.Info("prompt accepted", "chars", len(text), "files", len(env.Files))

	callCtx := context.WithoutCancel(ctx)
	go func() {
		answer, err := c.opts.Generator.Generate(callCtx, req)
		c.post(generated{text: answer, err: err})
	}()
}

func (c *Coordinator) finish(res generated) {
	if c.pending == nil {
		slog.Warn("discarding result with no request in flight")
		return
	}
	if res.err != nil {
		c.fail(res.err)
	} else {
		slog.Info("response ready", "chars", len(res.text))
		c.ch.Send(jrchat.Response(res.text))
	}
	c.pending = nil
	c.setState(Idle)
}

// fail is the only place error text is sent to the surface.
func (c *Coordinator) fail(err error) {
	var secrets []string
	if c.pending != nil {
		secrets = append(secrets, c.pending.apiKey)
	}
	text := redact.Text("Failed to process your request: "+err.Error(), secrets...)
	code := errorCode(err)

	if code != jrchat.CodeNotConfigured {
		c.opts.Notifier.RequestFailed(text)
	}
	slog.Warn("request failed", "code", code, "error", text)
	c.ch.Send(jrchat.Error(code, text))
}

func errorCode(err error) string {
	var perr *generate.ProtocolError
	switch {
	case errors.Is(err, ErrNotConfigured):
		return jrchat.CodeNotConfigured
	case errors.As(err, &perr):
		return jrchat.CodeProtocolError
	default:
		return jrchat.CodeTransportError
	}
}

func (c *Coordinator) handleFileList(ctx context.Context, prefix string) {
	if c.opts.Files == nil {
		c.ch.Send(jrchat.FileList(nil))
		return
	}
	go func() {
		paths, err := c.opts.Files.List(ctx, prefix)
		c.post(listed{prefix: prefix, paths: paths, err: err})
	}()
}

func (c *Coordinator) sendFileList(res listed) {
	if res.err != nil {
		slog.Warn("file listing failed", "prefix", res.prefix, "error", res.err)
	}
	c.ch.Send(jrchat.FileList(res.paths))
}
