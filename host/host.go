package host

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/codingjr/jrchat/channel"
)

// Host serves one surface at a time. Attaching a new surface ends the
// previous session; its in-flight result, if any, is discarded.
type Host struct {
	opts Options

	mu      sync.Mutex
	current *attachment
}

type attachment struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHost returns a Host whose sessions share opts.
func NewHost(opts Options) *Host {
	return &Host{opts: opts}
}

// Attach serves ch until the surface disconnects, ctx is cancelled, or
// another surface attaches. Attach closes ch before returning.
func (h *Host) Attach(ctx context.Context, id string, ch channel.Channel) error {
	ctx, cancel := context.WithCancel(ctx)
	a := &attachment{id: id, cancel: cancel, done: make(chan struct{})}

	h.mu.Lock()
	prev := h.current
	h.current = a
	h.mu.Unlock()

	if prev != nil {
		slog.Info("replacing session", "previous", prev.id, "conn", id)
		prev.cancel()
		<-prev.done
	}

	slog.Info("surface attached", "conn", id)
	err := New(ch, h.opts).Run(ctx)
	ch.Close()

	h.mu.Lock()
	if h.current == a {
		h.current = nil
	}
	h.mu.Unlock()
	cancel()
	close(a.done)

	if errors.Is(err, context.Canceled) {
		err = nil
	}
	slog.Info("surface detached", "conn", id)
	return err
}

// Close ends the current session, if any, and waits for it to detach.
func (h *Host) Close() {
	h.mu.Lock()
	cur := h.current
	h.mu.Unlock()
	if cur != nil {
		cur.cancel()
		<-cur.done
	}
}
