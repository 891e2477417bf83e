// Package surface is the UI side of a jrchat connection: it sends prompts,
// applies replies to the persisted conversation, and drives a renderer.
package surface

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/codingjr/jrchat"
	"github.com/codingjr/jrchat/channel"
	"github.com/codingjr/jrchat/session"
)

// ErrBusy is returned by Submit while a prompt is awaiting its reply.
var ErrBusy = errors.New("a request is already in flight")

// Renderer displays conversation changes. Calls come from the receive loop.
type Renderer interface {
	// Message shows a message that was just appended to the conversation.
	Message(msg jrchat.Message)
	// Error shows a failed request. The text is not part of the conversation.
	Error(text string)
	// Suggestions shows file paths matching an "@" prefix.
	Suggestions(prefix string, paths []string)
	// Busy enables or disables input.
	Busy(busy bool)
}

// Client tracks the single outstanding prompt of a surface.
type Client struct {
	ch     channel.Channel
	store  *session.Store
	render Renderer

	mu      sync.Mutex
	pending *jrchat.Message
	prefix  string
}

// New returns a client that records replies in store.
func New(ch channel.Channel, store *session.Store, render Renderer) *Client {
	if render == nil {
		render = nopRenderer{}
	}
	return &Client{ch: ch, store: store, render: render}
}

// Busy reports whether a prompt is awaiting its reply.
func (c *Client) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// Submit sends a prompt. Blank text is ignored. The user message is added to
// the conversation only once the host answers, so a prompt the host rejects
// for missing configuration leaves no trace. The flip side: if the surface
// is torn down before the answer arrives, the prompt is not in the restored
// conversation and has to be typed again.
func (c *Client) Submit(text string, files map[string]jrchat.FileContext) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if c.pending != nil {
		c.mu.Unlock()
		return ErrBusy
	}
	c.pending = &jrchat.Message{Role: jrchat.RoleUser, Content: text}
	c.mu.Unlock()

	c.render.Busy(true)
	c.ch.Send(jrchat.Prompt(text, files))
	return nil
}

// RequestFileList asks the host for workspace files starting with prefix.
func (c *Client) RequestFileList(prefix string) {
	c.mu.Lock()
	c.prefix = prefix
	c.mu.Unlock()
	c.ch.Send(jrchat.RequestFileList(prefix))
}

// Run applies incoming messages until the channel closes or ctx is done.
func (c *Client) Run(ctx context.Context) error {
	for {
		env, err := c.ch.Recv()
		if err != nil {
			if errors.Is(err, channel.ErrClosed) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Handle(ctx, env)
	}
}

// Handle applies one message from the host.
func (c *Client) Handle(ctx context.Context, env jrchat.Envelope) {
	switch env.Kind() {
	case jrchat.KindResponse:
		user := c.takePending()
		if user == nil {
			slog.Warn("response without a pending prompt")
			return
		}
		c.append(ctx, *user)
		c.append(ctx, jrchat.Message{Role: jrchat.RoleAssistant, Content: env.Text})
		c.render.Busy(false)

	case jrchat.KindError:
		user := c.takePending()
		if user != nil && env.Code != jrchat.CodeNotConfigured {
			c.append(ctx, *user)
		}
		c.render.Error(env.Text)
		c.render.Busy(false)

	case jrchat.KindFileList:
		c.mu.Lock()
		prefix := c.prefix
		c.mu.Unlock()
		c.render.Suggestions(prefix, env.Payload)

	default:
		slog.Warn("unknown command", "command", env.Kind())
	}
}

func (c *Client) takePending() *jrchat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.pending
	c.pending = nil
	return p
}

func (c *Client) append(ctx context.Context, msg jrchat.Message) {
	if err := c.store.Append(ctx, msg); err != nil {
		slog.Warn("failed to persist message", "error", err)
	}
	c.render.Message(msg)
}

type nopRenderer struct{}

func (nopRenderer) Message(jrchat.Message)       {}
func (nopRenderer) Error(string)                 {}
func (nopRenderer) Suggestions(string, []string) {}
func (nopRenderer) Busy(bool)                    {}
