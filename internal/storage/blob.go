// Package storage keeps event images and other public blobs.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
)

// ErrInvalidKey is returned for keys that would escape the store's root.
var ErrInvalidKey = errors.New("invalid blob key")

// BlobStore saves blobs under a key and serves them from a public URL.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) error
	URL(key string) string
	Delete(ctx context.Context, key string) error
}

// FS is a BlobStore on the local filesystem.  Writes go through a temporary
// file and rename so a reader never sees a partial blob.
type FS struct {
	root    string
	baseURL string
}

// NewFS returns a store rooted at dir whose blobs are served under baseURL.
func NewFS(dir, baseURL string) (*FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &FS{root: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// NewKey builds a collision-free key under prefix keeping ext, e.g.
// "eventos/<uuid>.png".
func NewKey(prefix, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join(prefix, uuid.NewString()+strings.ToLower(ext))
}

// Put writes r under key, replacing any previous blob.
func (s *FS) Put(ctx context.Context, key string, r io.Reader) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}
	// atomic.WriteFile needs the whole body; blobs are small images.
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read blob: %w", err)
	}
	if err := atomic.WriteFile(p, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	return nil
}

// URL returns the public address of key.
func (s *FS) URL(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}

// Delete removes key.  Deleting a missing blob is not an error.
func (s *FS) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (s *FS) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean[1:])), nil
}
