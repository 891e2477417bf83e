package channel

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/codingjr/jrchat"
)

// pipeEnd is one side of an in-memory channel pair.
type pipeEnd struct {
	inbox *queue[[]byte]
	peer  *pipeEnd
	once  sync.Once
}

// Pipe returns two connected in-memory endpoints. Messages are copied through
// their JSON encoding so each side sees exactly what a wire peer would.
func Pipe() (Channel, Channel) {
	a := &pipeEnd{inbox: newQueue[[]byte]()}
	b := &pipeEnd{inbox: newQueue[[]byte]()}
	a.peer, b.peer = b, a
	return a, b
}

func (p *pipeEnd) Send(env jrchat.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("failed to marshal message", "error", err)
		return
	}
	if !p.peer.inbox.push(data) {
		slog.Debug("send on closed pipe", "command", env.Kind())
	}
}

func (p *pipeEnd) Recv() (jrchat.Envelope, error) {
	for {
		data, ok := p.inbox.pop()
		if !ok {
			return jrchat.Envelope{}, ErrClosed
		}
		var env jrchat.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			slog.Warn("invalid message", "error", err)
			continue
		}
		if accept(env) {
			return env, nil
		}
	}
}

// Close closes both directions. The peer still receives messages sent before Close.
func (p *pipeEnd) Close() error {
	p.once.Do(func() {
		p.inbox.close()
		p.peer.inbox.close()
	})
	return nil
}
