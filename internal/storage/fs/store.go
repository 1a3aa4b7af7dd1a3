// Package fs persists each key as one file under a root directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "github.com/jwalitptl/dental-admin/pkg/errors"
)

// Store maps key K to <root>/K.json. Writes go through a temp file and a
// rename so a crash never leaves a half-written collection behind.
type Store struct {
	root string
	mu   sync.Mutex
}

// New returns a filesystem-backed store rooted at root, creating it if needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = "./data"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperrors.NewStorageUnavailable("open "+root, err)
	}
	return &Store{root: root}, nil
}

func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key contains '..'")
	}
	if strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid key %q contains a path separator", key)
	}
	return key, nil
}

func (s *Store) pathFor(key string) (string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, k+".json"), nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return "", false, apperrors.NewStorageUnavailable("get "+key, err)
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, iofs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.NewStorageUnavailable("get "+key, err)
	}
	return string(b), true, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return apperrors.NewStorageUnavailable("set "+key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return apperrors.NewStorageUnavailable("set "+key, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		return apperrors.NewStorageUnavailable("set "+key, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return apperrors.NewStorageUnavailable("set "+key, err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewStorageUnavailable("set "+key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperrors.NewStorageUnavailable("set "+key, err)
	}
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return apperrors.NewStorageUnavailable("remove "+key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return apperrors.NewStorageUnavailable("remove "+key, err)
	}
	return nil
}

func (s *Store) Close() error { return nil }
