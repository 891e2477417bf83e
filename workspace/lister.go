// Package workspace lists and reads files under a workspace root for "@" references.
package workspace

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultMaxSuggestions caps a file list reply when no limit is configured.
const DefaultMaxSuggestions = 50

const walkTimeout = 5 * time.Second

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git": true, ".hg": true, ".svn": true,
	"node_modules": true, ".venv": true, "__pycache__": true,
	".idea": true, ".next": true, "dist": true, "out": true, "target": true,
}

// Lister answers prefix queries from a cached walk of the workspace root.
type Lister struct {
	root  string
	max   int
	cache *ttlcache.Cache[string, []string]
}

// NewLister creates a Lister for root. A walk is reused until ttl expires.
func NewLister(root string, max int, ttl time.Duration) *Lister {
	if max <= 0 {
		max = DefaultMaxSuggestions
	}
	c := ttlcache.New[string, []string](
		ttlcache.WithTTL[string, []string](ttl),
		ttlcache.WithDisableTouchOnHit[string, []string](),
	)
	go c.Start()
	return &Lister{root: root, max: max, cache: c}
}

// Root returns the workspace root.
func (l *Lister) Root() string { return l.root }

// Close stops the cache expiration loop.
func (l *Lister) Close() {
	l.cache.Stop()
}

// List returns up to max workspace-relative, slash-separated file paths that
// start with prefix (case-insensitive), sorted.
func (l *Lister) List(ctx context.Context, prefix string) ([]string, error) {
	all, err := l.files(ctx)
	if err != nil {
		return nil, err
	}

	prefix = strings.ToLower(filepath.ToSlash(prefix))
	var out []string
	for _, p := range all {
		if !strings.HasPrefix(strings.ToLower(p), prefix) {
			continue
		}
		out = append(out, p)
		if len(out) == l.max {
			break
		}
	}
	return out, nil
}

// Invalidate drops the cached walk so the next List rescans the disk.
func (l *Lister) Invalidate() {
	l.cache.Delete(l.root)
}

func (l *Lister) files(ctx context.Context) ([]string, error) {
	if item := l.cache.Get(l.root); item != nil {
		return item.Value(), nil
	}

	files, err := walk(ctx, l.root)
	if err != nil {
		return nil, err
	}
	l.cache.Set(l.root, files, ttlcache.DefaultTTL)
	return files, nil
}

// walk collects every regular file under root, sorted.
func walk(ctx context.Context, root string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, walkTimeout)
	defer cancel()

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // unreadable entries are skipped
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, context.DeadlineExceeded) {
		// Keep what was collected before the deadline.
		err = nil
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
