// Package file stores model specs as YAML or JSON documents in a directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/hmm/pkg/domain"
)

// Format selects the encoding of newly written files.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// Store implements ports.ModelStore using the local filesystem.
// Each model lives in <BasePath>/<name>.yaml or <name>.json.
type Store struct {
	BasePath string
	format   Format
}

// Option defines a functional option for configuring a Store.
type Option func(*Store)

// WithFormat selects the encoding used by Save (default: YAML).
// Load accepts either encoding.
func WithFormat(f Format) Option {
	return func(s *Store) {
		s.format = f
	}
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".hmm/models".
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = filepath.Join(".hmm", "models")
	}
	s := &Store{BasePath: basePath, format: YAML}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) path(name string, f Format) string {
	return filepath.Join(s.BasePath, name+"."+string(f))
}

// Save persists the spec atomically: it writes a temporary file, syncs it and
// renames it over the destination. A copy in the other format is removed.
func (s *Store) Save(ctx context.Context, name string, spec *domain.ModelSpec) error {
	if name == "" {
		return fmt.Errorf("model name cannot be empty")
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure model directory: %w", err)
	}

	data, err := Encode(spec, s.format)
	if err != nil {
		return err
	}

	// Same directory, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+name+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	destPath := s.path(name, s.format)
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing model file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to model file: %w", err)
	}

	if other := s.path(name, s.other()); other != destPath {
		if err := os.Remove(other); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale model file: %w", err)
		}
	}
	return nil
}

func (s *Store) other() Format {
	if s.format == JSON {
		return YAML
	}
	return JSON
}

// Load retrieves the spec, preferring the store's own format.
func (s *Store) Load(ctx context.Context, name string) (*domain.ModelSpec, error) {
	if name == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}

	for _, f := range []Format{s.format, s.other()} {
		spec, err := ReadFile(s.path(name, f))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return spec, err
	}
	return nil, domain.ErrModelNotFound
}

// Delete removes the model file in either format.
func (s *Store) Delete(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	for _, f := range []Format{YAML, JSON} {
		if err := os.Remove(s.path(name, f)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete model file: %w", err)
		}
	}
	return nil
}

// List returns the names of every stored model in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	seen := make(map[string]bool)
	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), "tmp-") {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if _, ok := formatOf(ext); !ok {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ext)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
