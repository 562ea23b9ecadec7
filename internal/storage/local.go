package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// LocalStore serves pack payloads from a directory on disk.
type LocalStore struct {
	validator *PathValidator
}

func NewLocalStore(root string) (*LocalStore, error) {
	validator, err := NewPathValidator(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(validator.RootAbs(), 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	return &LocalStore{validator: validator}, nil
}

func (s *LocalStore) RootAbs() string {
	return s.validator.RootAbs()
}

func (s *LocalStore) Open(_ context.Context, locator string) (io.ReadCloser, int64, error) {
	resolved, err := s.validator.ResolvePath(locator)
	if err != nil {
		return nil, 0, err
	}

	file, err := os.Open(resolved)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, fmt.Errorf("open %q: %w", locator, ErrNotFound)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open %q: %w", locator, err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, 0, fmt.Errorf("stat %q: %w", locator, err)
	}

	if info.IsDir() {
		_ = file.Close()
		return nil, 0, fmt.Errorf("open %q: %w", locator, ErrNotFound)
	}

	return file, info.Size(), nil
}
