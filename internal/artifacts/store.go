// SPDX-License-Identifier: Apache-2.0

// Package artifacts publishes the files of a finished run to durable storage.
package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kusari-oss/cadsmith/internal/core/config"
)

// Store uploads a local file under a slash separated key
type Store interface {
	Put(ctx context.Context, key, localPath string) error
	// Location describes where key ends up, for logs and summaries
	Location(key string) string
}

// NewStore builds the store selected by cfg.Backend; "none" yields a nil Store
func NewStore(ctx context.Context, cfg config.ArtifactsConfig) (Store, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "local":
		return NewLocalStore(config.ExpandPathWithTilde(cfg.Dir)), nil
	case "s3":
		store, err := NewMinioStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown artifacts backend %q", cfg.Backend)
	}
}

// LocalStore copies files into a directory tree
type LocalStore struct {
	root string
}

// NewLocalStore creates a store rooted at dir
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{root: dir}
}

// Location implements Store
func (s *LocalStore) Location(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Put implements Store
func (s *LocalStore) Put(_ context.Context, key, localPath string) error {
	dest := s.Location(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("error creating directory for %s: %w", key, err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", localPath, err)
	}
	defer src.Close()

	dst, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", dest, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("error copying %s: %w", localPath, err)
	}
	return dst.Close()
}
