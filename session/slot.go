package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/codingjr/jrchat"
	"github.com/google/renameio"
)

// Slot stores one opaque blob for one surface.
type Slot interface {
	// Load returns the stored blob, or nil with no error when nothing is stored.
	Load(ctx context.Context) ([]byte, error)
	// Save replaces the stored blob.
	Save(ctx context.Context, data []byte) error
}

// OpenSlot returns the slot configured by cfg for the surface identified by key.
// The returned close function releases any connection the slot holds.
func OpenSlot(cfg jrchat.StorageConfig, key string) (Slot, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case "", "file":
		dir := cfg.Path
		if dir == "" {
			dir = filepath.Join(jrchat.ConfigDir(), "state")
		}
		return NewFileSlot(dir, key), noop, nil
	case "memory":
		return &MemorySlot{}, noop, nil
	case "redis":
		slot, err := NewRedisSlot(cfg.RedisAddr, key)
		if err != nil {
			return nil, nil, err
		}
		return slot, slot.Close, nil
	case "sqlite3", "mysql":
		slot, err := NewSQLSlot(cfg.Driver, cfg.DSN, key)
		if err != nil {
			return nil, nil, err
		}
		return slot, slot.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// MemorySlot keeps the blob in process memory.
type MemorySlot struct {
	mu   sync.Mutex
	data []byte
}

func (m *MemorySlot) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemorySlot) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileSlot stores the blob in <dir>/<key>.json, replacing it atomically.
type FileSlot struct {
	path string
}

// NewFileSlot returns a slot for key under dir. Characters that are not
// safe in file names are replaced with "_".
func NewFileSlot(dir, key string) *FileSlot {
	name := unsafeKeyChars.ReplaceAllString(key, "_")
	if name == "" {
		name = "default"
	}
	return &FileSlot{path: filepath.Join(dir, name+".json")}
}

// Path returns the file backing the slot.
func (f *FileSlot) Path() string { return f.path }

func (f *FileSlot) Load(context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (f *FileSlot) Save(_ context.Context, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	return renameio.WriteFile(f.path, data, 0o600)
}
