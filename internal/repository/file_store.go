package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nikolayk812/storefront/internal/port"
)

// fileStore keeps one file per key in a directory, the local counterpart of
// browser storage.
type fileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFile(dir string) (port.SessionStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is empty")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("os.MkdirAll: %w", err)
	}

	return &fileStore{dir: dir}, nil
}

func (s *fileStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path, err := s.path(ctx, key)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	value, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("os.ReadFile: %w", err)
	}

	return value, true, nil
}

func (s *fileStore) Set(ctx context.Context, key string, value []byte) error {
	path, err := s.path(ctx, key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "."+key+"-*")
	if err != nil {
		return fmt.Errorf("os.CreateTemp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("tmp.Write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tmp.Close: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("os.Rename: %w", err)
	}

	return nil
}

func (s *fileStore) Remove(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error

	for _, key := range keys {
		path, err := s.path(ctx, key)
		if err != nil {
			return err
		}

		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("os.Remove[%s]: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

func (s *fileStore) path(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if key == "" {
		return "", fmt.Errorf("key is empty")
	}
	if key == "." || key == ".." || filepath.Base(key) != key {
		return "", fmt.Errorf("key[%s] is not valid", key)
	}

	return filepath.Join(s.dir, key), nil
}
