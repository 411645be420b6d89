package processor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"reshare/internal/workpool"
)

const (
	// MinBufKB is the smallest read buffer, in kilobytes
	MinBufKB = 4
	// MaxBufKB is the largest read buffer, in kilobytes (16 MB)
	MaxBufKB = 8192 * 2

	kb = 1024
)

// ErrReaderClosed is returned by Next after Close
var ErrReaderClosed = errors.New("reader closed")

type readResult struct {
	buf []byte
	n   int
	err error
}

// AdaptiveReader turns a reader into a single-pass ChunkSource. Every read is run
// on the worker pool and the buffer size adapts to how much of it each read filled:
// a full read doubles it, a short read halves it.
//
// An AdaptiveReader is not safe for concurrent use.
type AdaptiveReader struct {
	r     io.Reader
	pool  *workpool.Pool
	bufKB int

	// pending is non-nil while a read is in flight on the pool
	pending chan readResult
	// err is the terminal error (io.EOF at the end of input)
	err error
}

// NewAdaptiveReader creates a reader starting at the minimum buffer size. Reads
// run on pool; a nil pool runs each read on its own goroutine.
func NewAdaptiveReader(r io.Reader, pool *workpool.Pool) *AdaptiveReader {
	return &AdaptiveReader{
		r:     r,
		pool:  pool,
		bufKB: MinBufKB,
	}
}

// BufferKB returns the size of the buffer the next read will use
func (a *AdaptiveReader) BufferKB() int {
	return a.bufKB
}

// Next returns the next chunk. If ctx ends while a read is in flight the read keeps
// running and the following call to Next picks up its result.
func (a *AdaptiveReader) Next(ctx context.Context) ([]byte, error) {
	for {
		if a.err != nil {
			return nil, a.err
		}

		if a.pending == nil {
			if err := a.submit(ctx); err != nil {
				return nil, err
			}
		}

		var res readResult
		select {
		case res = <-a.pending:
			a.pending = nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		chunk := a.complete(res)
		if chunk != nil {
			return chunk, nil
		}
	}
}

// submit hands a read of the current buffer size to the pool
func (a *AdaptiveReader) submit(ctx context.Context) error {
	buf := make([]byte, a.bufKB*kb)
	result := make(chan readResult, 1)
	r := a.r

	read := func() {
		n, err := r.Read(buf)
		result <- readResult{buf: buf, n: n, err: err}
	}

	if a.pool == nil {
		go read()
		a.pending = result
		return nil
	}

	err := a.pool.Submit(ctx, read)
	if err != nil {
		if errors.Is(err, workpool.ErrClosed) {
			a.err = fmt.Errorf("failed to schedule read: %w", err)
			return a.err
		}
		return err
	}

	a.pending = result
	return nil
}

// complete applies a finished read. It returns nil when there is no chunk to emit.
func (a *AdaptiveReader) complete(res readResult) []byte {
	if res.err != nil {
		if errors.Is(res.err, io.EOF) {
			a.err = io.EOF
		} else {
			a.err = fmt.Errorf("failed to read chunk: %w", res.err)
		}
	}

	if res.n == 0 {
		return nil
	}

	if res.n == len(res.buf) {
		if a.bufKB < MaxBufKB {
			a.bufKB *= 2
		}
		return res.buf
	}

	if a.bufKB > MinBufKB {
		a.bufKB /= 2
	}
	return res.buf[:res.n]
}

// Close waits for an in-flight read, then closes the underlying reader when it is
// an io.Closer
func (a *AdaptiveReader) Close() error {
	if a.pending != nil {
		<-a.pending
		a.pending = nil
	}
	if a.err == nil {
		a.err = ErrReaderClosed
	}
	if c, ok := a.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
