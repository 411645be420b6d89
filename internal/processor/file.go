package processor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// maxNameAttempts bounds the name(1), name(2), ... search in CreateUnique
const maxNameAttempts = 10000

// FileService handles basic file operations
type FileService struct{}

// NewFileService creates a new file service
func NewFileService() *FileService {
	return &FileService{}
}

// OpenReader opens a regular file for reading and returns its info
func (f *FileService) OpenReader(filePath string) (*os.File, os.FileInfo, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to get file info: %w", err)
	}

	if stat.IsDir() {
		file.Close()
		return nil, nil, fmt.Errorf("'%s' is a directory", filePath)
	}

	return file, stat, nil
}

// EnsureDir creates directory if it doesn't exist
func (f *FileService) EnsureDir(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// CreateUnique creates name inside dir without overwriting anything. When name is
// taken it tries "name(1)", "name(2)" and so on.
func (f *FileService) CreateUnique(dir, name string) (*os.File, error) {
	if err := f.EnsureDir(dir); err != nil {
		return nil, err
	}

	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s(%d)", name, i)
		}

		file, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return file, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%s - %w", candidate, err)
		}
	}

	return nil, fmt.Errorf("%s - no free file name", name)
}
