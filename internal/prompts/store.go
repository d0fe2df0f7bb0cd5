package prompts

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultTemplate is the template used for both generation and checking
const DefaultTemplate = "workflow_generator"

// Store loads prompt templates by name
type Store interface {
	Load(ctx context.Context, name string) (*Template, error)
}

// FileStore reads <dir>/<name>.yaml (or .yml) from a list of directories.
// The first directory holding the file wins.
type FileStore struct {
	paths []string
}

// NewFileStore creates a store searching the given directories in order
func NewFileStore(paths ...string) *FileStore {
	return &FileStore{paths: paths}
}

// Load implements Store
func (s *FileStore) Load(ctx context.Context, name string) (*Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, dir := range s.paths {
		for _, candidate := range candidateFiles(name) {
			filePath := filepath.Join(dir, candidate)
			content, err := os.ReadFile(filePath)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return nil, fmt.Errorf("error reading %s: %w", filePath, err)
			}

			t, err := Parse(name, content)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", filePath, err)
			}
			t.Source = filePath
			return t, nil
		}
	}

	return nil, fmt.Errorf("%w: %q (searched %s)", ErrTemplateNotFound, name, strings.Join(s.paths, ", "))
}

// LoadFile parses a template from an explicit path
func LoadFile(filePath string) (*Template, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, filePath)
		}
		return nil, fmt.Errorf("error reading %s: %w", filePath, err)
	}
	name := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	t, err := Parse(name, content)
	if err != nil {
		return nil, err
	}
	t.Source = filePath
	return t, nil
}

func candidateFiles(name string) []string {
	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		return []string{name}
	}
	return []string{name + ".yaml", name + ".yml"}
}

//go:embed defaults/*.yaml
var defaultTemplates embed.FS

// EmbeddedStore serves the templates compiled into the binary
type EmbeddedStore struct{}

// Load implements Store
func (EmbeddedStore) Load(ctx context.Context, name string) (*Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, candidate := range candidateFiles(name) {
		content, err := defaultTemplates.ReadFile(path.Join("defaults", candidate))
		if err != nil {
			continue
		}
		t, err := Parse(name, content)
		if err != nil {
			return nil, err
		}
		t.Source = "embedded:" + candidate
		return t, nil
	}
	return nil, fmt.Errorf("%w: %q (embedded)", ErrTemplateNotFound, name)
}

// ChainStore tries each store in order. Only ErrTemplateNotFound falls
// through to the next store; any other failure is returned as is.
type ChainStore []Store

// Load implements Store
func (c ChainStore) Load(ctx context.Context, name string) (*Template, error) {
	for _, s := range c {
		t, err := s.Load(ctx, name)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, ErrTemplateNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
}

// CachedStore memoises successful loads. Template content is static for the
// length of a run, so every Generator and Validator call can hit the cache.
type CachedStore struct {
	inner Store

	mu    sync.Mutex
	cache map[string]*Template
}

// NewCachedStore wraps inner with a per-name cache
func NewCachedStore(inner Store) *CachedStore {
	return &CachedStore{inner: inner, cache: make(map[string]*Template)}
}

// Load implements Store
func (c *CachedStore) Load(ctx context.Context, name string) (*Template, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.cache[name]; ok {
		return t, nil
	}
	t, err := c.inner.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	c.cache[name] = t
	return t, nil
}

// StaticStore always returns the same template, whatever name is asked for.
// Used when the operator points --template at a file.
type StaticStore struct {
	Template *Template
}

// Load implements Store
func (s StaticStore) Load(ctx context.Context, _ string) (*Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Template == nil {
		return nil, ErrTemplateNotFound
	}
	return s.Template, nil
}
