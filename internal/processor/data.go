package processor

import (
	"context"
	"errors"
	"io"
)

// ChunkSource yields the bytes of one file as an ordered sequence of chunks.
// Next returns io.EOF once the sequence is exhausted. Callers must not call Next
// again after it returned a non-nil error.
type ChunkSource interface {
	Next(ctx context.Context) ([]byte, error)
}

// ChunkReader exposes a ChunkSource as an io.Reader so it can be used as an HTTP
// request or response body
type ChunkReader struct {
	ctx     context.Context
	src     ChunkSource
	pending []byte
	err     error
}

// NewChunkReader creates a reader pulling chunks from src with the given context
func NewChunkReader(ctx context.Context, src ChunkSource) *ChunkReader {
	return &ChunkReader{
		ctx: ctx,
		src: src,
	}
}

// Read copies buffered chunk bytes into p, pulling the next chunk when the buffer is empty
func (r *ChunkReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for len(r.pending) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		chunk, err := r.src.Next(r.ctx)
		if err != nil {
			r.err = err
			continue
		}
		r.pending = chunk
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// WriteTo writes whole chunks to w until the source is exhausted. It lets io.Copy
// skip the intermediate buffer.
func (r *ChunkReader) WriteTo(w io.Writer) (int64, error) {
	var total int64

	if len(r.pending) > 0 {
		n, err := w.Write(r.pending)
		total += int64(n)
		r.pending = nil
		if err != nil {
			return total, err
		}
	}

	for r.err == nil {
		chunk, err := r.src.Next(r.ctx)
		if err != nil {
			r.err = err
			break
		}
		n, err := w.Write(chunk)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}

	if errors.Is(r.err, io.EOF) {
		return total, nil
	}
	return total, r.err
}
