// Package channel carries jrchat envelopes between a surface and the host.
//
// Every implementation is ordered and fire-and-forget: Send queues the
// message and returns immediately, and a single writer goroutine delivers
// queued messages in the order they were sent. Malformed inbound frames and
// frames without a kind are logged and skipped, never returned.
package channel

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/codingjr/jrchat"
)

// ErrClosed is returned by Recv once the channel or its peer has closed.
var ErrClosed = errors.New("channel closed")

// Channel is one endpoint of a duplex message pipe.
type Channel interface {
	// Send queues env for delivery. It never blocks on the peer.
	Send(env jrchat.Envelope)
	// Recv blocks until the next message arrives or the channel closes.
	Recv() (jrchat.Envelope, error)
	// Close flushes queued messages and releases the underlying transport.
	Close() error
}

// queue is an unbounded FIFO whose pop blocks until an item or close.
type queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	closed bool
}

func newQueue[T any]() *queue[T] {
	q := &queue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends v and reports whether the queue was still open.
func (q *queue[T]) push(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, v)
	q.cond.Signal()
	return true
}

// pop returns the oldest item. ok is false once the queue is closed and drained.
func (q *queue[T]) pop() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return v, false
	}
	v = q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

func (q *queue[T]) close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// outbox delivers queued envelopes through write on a dedicated goroutine.
type outbox struct {
	q    *queue[jrchat.Envelope]
	done chan struct{}
	once sync.Once
}

func newOutbox(name string, write func(jrchat.Envelope) error) *outbox {
	o := &outbox{q: newQueue[jrchat.Envelope](), done: make(chan struct{})}
	go func() {
		defer close(o.done)
		broken := false
		for {
			env, ok := o.q.pop()
			if !ok {
				return
			}
			if broken {
				continue
			}
			if err := write(env); err != nil {
				slog.Warn("send failed, dropping remaining messages", "channel", name, "error", err)
				broken = true
			}
		}
	}()
	return o
}

func (o *outbox) send(env jrchat.Envelope) {
	if !o.q.push(env) {
		slog.Debug("send on closed channel", "command", env.Kind())
	}
}

// flush stops accepting messages and waits until queued ones are written.
func (o *outbox) flush() {
	o.once.Do(o.q.close)
	<-o.done
}

// accept reports whether an inbound envelope should be handed to the caller.
func accept(env jrchat.Envelope) bool {
	if env.Kind() == "" {
		slog.Warn("dropping message without command")
		return false
	}
	return true
}
