// Package session keeps a surface's conversation and persists it so the
// history survives the surface being torn down and recreated.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/codingjr/jrchat"
	defaults "github.com/codingjr/jrchat/default"
)

// Store holds the ordered conversation for one surface.
// Every mutation writes the full state to the slot before returning.
type Store struct {
	slot Slot

	mu    sync.Mutex
	state jrchat.ConversationState
}

// New returns an empty store backed by slot. Call Open or Restore to load history.
func New(slot Slot) *Store {
	return &Store{slot: slot}
}

// Open restores the persisted conversation. When nothing usable is stored
// the conversation starts with a single assistant greeting, which is
// persisted right away.
func Open(ctx context.Context, slot Slot) *Store {
	s := New(slot)
	if restored := s.Restore(ctx); restored != nil {
		s.state = *restored
		return s
	}

	greeting := jrchat.ConversationState{Messages: []jrchat.Message{
		{Role: jrchat.RoleAssistant, Content: Greeting()},
	}}
	if err := s.Persist(ctx, greeting); err != nil {
		slog.Warn("failed to persist greeting", "error", err)
	}
	return s
}

// Greeting returns the assistant message shown in a fresh conversation.
func Greeting() string {
	return strings.TrimSpace(defaults.Greeting)
}

// Restore reads the last persisted state. It returns nil when nothing was
// persisted or the stored data cannot be decoded.
func (s *Store) Restore(ctx context.Context) *jrchat.ConversationState {
	data, err := s.slot.Load(ctx)
	if err != nil {
		slog.Warn("failed to load conversation", "error", err)
		return nil
	}
	if data == nil {
		return nil
	}

	var state jrchat.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		slog.Warn("discarding unreadable conversation", "error", err)
		return nil
	}
	if state.Messages == nil {
		slog.Warn("discarding conversation without messages")
		return nil
	}
	return &state
}

// Append adds msg to the end of the conversation and persists the whole state.
// The message stays in memory even if the write fails.
func (s *Store) Append(ctx context.Context, msg jrchat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Messages = append(s.state.Messages, msg)
	return s.write(ctx)
}

// Persist replaces the conversation with state and writes it. Writing the
// same state twice leaves the slot unchanged.
func (s *Store) Persist(ctx context.Context, state jrchat.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = jrchat.ConversationState{Messages: append([]jrchat.Message(nil), state.Messages...)}
	return s.write(ctx)
}

// Messages returns a copy of the conversation in order.
func (s *Store) Messages() []jrchat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]jrchat.Message(nil), s.state.Messages...)
}

func (s *Store) write(ctx context.Context) error {
	state := s.state
	if state.Messages == nil {
		state.Messages = []jrchat.Message{}
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.slot.Save(ctx, data); err != nil {
		return fmt.Errorf("persist conversation: %w", err)
	}
	return nil
}
