package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a blob does not exist
var ErrNotFound = errors.New("blob not found")

// Local stores uploaded file contents as randomly named blobs in one directory.
// Blob names never collide with user file names, so the index alone decides
// which name a file is served under.
type Local struct {
	basePath string
}

// NewLocal creates the storage directory if needed
func NewLocal(basePath string) (*Local, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Local{basePath: basePath}, nil
}

// BasePath returns the storage directory
func (s *Local) BasePath() string {
	return s.basePath
}

// Create opens a new empty blob for writing and returns its path
func (s *Local) Create() (*os.File, error) {
	path := filepath.Join(s.basePath, uuid.NewString())

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob: %w", err)
	}
	return file, nil
}

// Open opens a blob for reading and returns its size
func (s *Local) Open(path string) (*os.File, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("failed to open blob: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("failed to stat blob: %w", err)
	}

	return file, stat.Size(), nil
}

// Remove deletes a blob. Missing blobs are not an error.
func (s *Local) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove blob: %w", err)
	}
	return nil
}
