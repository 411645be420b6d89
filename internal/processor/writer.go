package processor

import (
	"context"
	"fmt"
	"os"

	"reshare/internal/workpool"
)

// FileSink writes ordered chunks to a local file, running every write on the
// worker pool
type FileSink struct {
	file    *os.File
	path    string
	pool    *workpool.Pool
	written uint64
	closed  bool
}

// NewFileSink wraps an open file
func NewFileSink(file *os.File, pool *workpool.Pool) *FileSink {
	return &FileSink{
		file: file,
		path: file.Name(),
		pool: pool,
	}
}

// Path returns the destination path
func (s *FileSink) Path() string {
	return s.path
}

// Written returns the number of bytes written so far
func (s *FileSink) Written() uint64 {
	return s.written
}

// WriteChunk writes the whole chunk and waits for the write to complete
func (s *FileSink) WriteChunk(ctx context.Context, chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	done := make(chan error, 1)
	file := s.file
	if err := s.pool.Submit(ctx, func() {
		_, err := file.Write(chunk)
		done <- err
	}); err != nil {
		return fmt.Errorf("failed to schedule write: %w", err)
	}

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to write data: %w", err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	s.written += uint64(len(chunk))
	return nil
}

// Close flushes and closes the file
func (s *FileSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.file.Sync(); err != nil {
		s.file.Close()
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}

// Remove closes the file and deletes it. Errors are ignored: a partially written
// file that cannot be removed is left in place.
func (s *FileSink) Remove() {
	if !s.closed {
		s.closed = true
		s.file.Close()
	}
	os.Remove(s.path)
}
