package coordinator

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reshare/internal/processor"
	"reshare/internal/workpool"
	"reshare/pkg/types"
)

// memorySink collects chunks in memory
type memorySink struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	committed bool
	aborted   bool
	failWrite error
}

func (s *memorySink) WriteChunk(ctx context.Context, chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return s.failWrite
	}
	s.buf.Write(chunk)
	return nil
}

func (s *memorySink) Commit(ctx context.Context) (*types.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = true
	return &types.FileInfo{Size: uint64(s.buf.Len())}, nil
}

func (s *memorySink) Abort(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = true
}

// fileOpener reads local files into memory sinks
type fileOpener struct {
	pool *workpool.Pool

	mu    sync.Mutex
	sinks map[string]*memorySink
}

func newFileOpener(t *testing.T) *fileOpener {
	t.Helper()
	pool := workpool.New(4)
	t.Cleanup(pool.Close)
	return &fileOpener{pool: pool, sinks: make(map[string]*memorySink)}
}

func (o *fileOpener) Open(ctx context.Context, desc types.FileDescriptor, ns types.Namespace) (*Transfer, error) {
	file, stat, err := processor.NewFileService().OpenReader(desc.Source)
	if err != nil {
		return nil, err
	}

	sink := &memorySink{}
	o.mu.Lock()
	o.sinks[desc.Source] = sink
	o.mu.Unlock()

	return &Transfer{
		Name:   desc.Name,
		Length: uint64(stat.Size()),
		Source: processor.NewAdaptiveReader(file, o.pool),
		Sink:   sink,
	}, nil
}

func (o *fileOpener) sink(path string) *memorySink {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sinks[path]
}

func writeRandom(t *testing.T, dir, name string, size int) (string, []byte) {
	t.Helper()
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path, data
}

func TestRunRejectsEmptyBatch(t *testing.T) {
	opener := newFileOpener(t)

	results, err := NewOrchestrator(Options{}).Run(context.Background(), nil, types.Public, opener)
	assert.ErrorIs(t, err, ErrEmptyBatch)
	assert.Nil(t, results)
	assert.Empty(t, opener.sinks)
}

func TestRunSmallAndLargeFile(t *testing.T) {
	dir := t.TempDir()
	small, smallData := writeRandom(t, dir, "small", 10*1024)
	large, largeData := writeRandom(t, dir, "large", 50*1024*1024)

	opener := newFileOpener(t)
	display := newCountingDisplay()
	descs := []types.FileDescriptor{
		{Name: "small", Source: small},
		{Name: "large", Source: large},
	}

	results, err := NewOrchestrator(Options{Display: display}).Run(context.Background(), descs, types.Public, opener)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, res := range results {
		assert.True(t, res.OK(), "%s: %v", res.Name, res.Err)
	}
	assert.Equal(t, "small", results[0].Name)
	assert.Equal(t, "large", results[1].Name)

	assert.Equal(t, smallData, opener.sink(small).buf.Bytes())
	assert.Equal(t, largeData, opener.sink(large).buf.Bytes())

	assert.Equal(t, uint64(len(smallData)), display.total("small"))
	assert.Equal(t, uint64(len(largeData)), display.total("large"))
	assert.ElementsMatch(t, []string{"small", "large"}, display.finished)
}

func TestRunIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	const n = 5

	descs := make([]types.FileDescriptor, 0, n)
	for i := 0; i < n-1; i++ {
		path, _ := writeRandom(t, dir, fmt.Sprintf("f%d", i), 64*1024+i)
		descs = append(descs, types.FileDescriptor{Name: filepath.Base(path), Source: path})
	}
	descs = append(descs, types.FileDescriptor{Name: "missing", Source: filepath.Join(dir, "missing")})

	opener := newFileOpener(t)
	results, err := NewOrchestrator(Options{Parallel: 2}).Run(context.Background(), descs, types.Public, opener)
	require.NoError(t, err)
	require.Len(t, results, n)

	var ok int
	for _, res := range results {
		if res.OK() {
			ok++
		}
	}
	assert.Equal(t, n-1, ok)
	assert.Equal(t, "missing", results[n-1].Name)
	assert.ErrorIs(t, results[n-1].Err, os.ErrNotExist)
}

func TestRunRejectsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	opener := newFileOpener(t)
	results, err := NewOrchestrator(Options{}).Run(context.Background(),
		[]types.FileDescriptor{{Name: "empty", Source: path}}, types.Public, opener)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, ErrEmptyFile)
	assert.True(t, opener.sink(path).aborted)
	assert.False(t, opener.sink(path).committed)
}

type failingOpener struct {
	*fileOpener
}

func (o failingOpener) Open(ctx context.Context, desc types.FileDescriptor, ns types.Namespace) (*Transfer, error) {
	t, err := o.fileOpener.Open(ctx, desc, ns)
	if err != nil {
		return nil, err
	}
	t.Sink.(*memorySink).failWrite = errors.New("disk full")
	return t, nil
}

func TestRunAbortsOnSinkFailure(t *testing.T) {
	dir := t.TempDir()
	path, _ := writeRandom(t, dir, "data", 32*1024)

	opener := failingOpener{newFileOpener(t)}
	results, err := NewOrchestrator(Options{}).Run(context.Background(),
		[]types.FileDescriptor{{Name: "data", Source: path}}, types.Public, opener)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.EqualError(t, results[0].Err, "disk full")
	assert.True(t, opener.sink(path).aborted)
}

func TestRunDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	a, _ := writeRandom(t, dir, "a", 1000)
	b, _ := writeRandom(t, dir, "b", 2000)

	display := newCountingDisplay()
	results, err := NewOrchestrator(Options{Display: display}).Run(context.Background(), []types.FileDescriptor{
		{Name: "same", Source: a},
		{Name: "same", Source: b},
	}, types.Public, newFileOpener(t))
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.True(t, results[0].OK())
	assert.True(t, results[1].OK())
	assert.Equal(t, uint64(3000), display.total("same")+display.total("same (2)"))
}

// countingDisplay sums progress per file
type countingDisplay struct {
	mu       sync.Mutex
	totals   map[string]uint64
	finished []string
}

func newCountingDisplay() *countingDisplay {
	return &countingDisplay{totals: make(map[string]uint64)}
}

func (d *countingDisplay) Add(name string, total uint64) {}

func (d *countingDisplay) Increment(name string, n uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.totals[name] += n
}

func (d *countingDisplay) Finish(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finished = append(d.finished, name)
}

func (d *countingDisplay) Abandon(name string) {}
func (d *countingDisplay) Wait()               {}

func (d *countingDisplay) total(name string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.totals[name]
}
