package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveDestinationDir validates the directory downloads are written into. An
// empty path selects the working directory. A missing directory is accepted when
// its parent exists; it is created on the first download.
func ResolveDestinationDir(destPath string) (string, error) {
	if destPath == "" {
		destPath = "."
	}

	info, err := os.Stat(destPath)
	switch {
	case err == nil:
		if !info.IsDir() {
			return "", fmt.Errorf("destination path '%s' exists but is not a directory", destPath)
		}
		return destPath, nil
	case os.IsNotExist(err):
		dir := filepath.Dir(filepath.Clean(destPath))
		if parent, dirErr := os.Stat(dir); dirErr == nil && parent.IsDir() {
			return destPath, nil
		}
		return "", fmt.Errorf("parent directory does not exist: %s", dir)
	default:
		return "", fmt.Errorf("cannot access destination path: %w", err)
	}
}
