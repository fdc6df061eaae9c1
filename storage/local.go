package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LocalStore keeps one file per key in a directory. Access to each key is
// serialised across processes with an advisory lock file next to it.
type LocalStore struct {
	logger *slog.Logger
	dir    string
}

// NewLocal creates a store rooted at dir, creating the directory if needed.
func NewLocal(dir string, logger *slog.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local storage directory: %w", err)
	}
	return &LocalStore{dir: dir, logger: logger}, nil
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *LocalStore) lock(key string) *flock.Flock {
	return flock.New(filepath.Join(s.dir, key+".lock"))
}

// Get reads the value stored under key.
func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	fl := s.lock(key)
	if err := fl.RLock(); err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	defer func() {
		if err := fl.Unlock(); err != nil {
			s.logger.Warn("Failed to release lock", "key", key, "error", err)
		}
	}()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("get %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("read from local storage: %w", err)
	}
	return data, nil
}

// Set replaces the value stored under key. The file is written to a
// temporary name and renamed so readers never see a partial value.
func (s *LocalStore) Set(_ context.Context, key string, value []byte) error {
	if err := validKey(key); err != nil {
		return err
	}

	fl := s.lock(key)
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	defer func() {
		if err := fl.Unlock(); err != nil {
			s.logger.Warn("Failed to release lock", "key", key, "error", err)
		}
	}()

	filePath := s.path(key)
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, value, 0o600); err != nil {
		return fmt.Errorf("write to local storage: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		return fmt.Errorf("rename local storage file: %w", err)
	}

	s.logger.Debug("Value saved to local storage", "path", filePath, "bytes", len(value))
	return nil
}
