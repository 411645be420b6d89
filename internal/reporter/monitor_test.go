package reporter

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSource yields fixed chunks, then err (io.EOF when nil)
type sliceSource struct {
	chunks [][]byte
	err    error
}

func (s *sliceSource) Next(ctx context.Context) ([]byte, error) {
	if len(s.chunks) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	chunk := s.chunks[0]
	s.chunks = s.chunks[1:]
	return chunk, nil
}

func TestMonitorIsTransparent(t *testing.T) {
	chunks := [][]byte{[]byte("ab"), []byte("cde"), []byte("f")}
	mon := NewMonitor(&sliceSource{chunks: chunks}, 0)

	var got [][]byte
	for {
		chunk, err := mon.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, chunk)
	}
	mon.Close()

	assert.Equal(t, chunks, got)

	var deltas []uint64
	for n := range mon.Feed() {
		deltas = append(deltas, n)
	}
	assert.Equal(t, []uint64{2, 3, 1}, deltas)
}

func TestMonitorPassesErrorsWithoutTelemetry(t *testing.T) {
	boom := errors.New("boom")
	mon := NewMonitor(&sliceSource{chunks: [][]byte{[]byte("xyz")}, err: boom}, 0)

	_, err := mon.Next(context.Background())
	require.NoError(t, err)
	_, err = mon.Next(context.Background())
	assert.ErrorIs(t, err, boom)
	mon.Close()

	total, count := sum(mon.Feed())
	assert.Equal(t, uint64(3), total)
	assert.Equal(t, 1, count)
}

func TestMonitorEmptySource(t *testing.T) {
	mon := NewMonitor(&sliceSource{}, 0)

	_, err := mon.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	mon.Close()

	_, count := sum(mon.Feed())
	assert.Zero(t, count)
}
