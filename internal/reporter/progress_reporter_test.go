package reporter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDisplay records every call it receives
type recordingDisplay struct {
	mu        sync.Mutex
	added     map[string]uint64
	progress  map[string]uint64
	finished  []string
	abandoned []string
	waited    bool
}

func newRecordingDisplay() *recordingDisplay {
	return &recordingDisplay{
		added:    make(map[string]uint64),
		progress: make(map[string]uint64),
	}
}

func (d *recordingDisplay) Add(name string, total uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.added[name] = total
}

func (d *recordingDisplay) Increment(name string, n uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.progress[name] += n
}

func (d *recordingDisplay) Finish(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finished = append(d.finished, name)
}

func (d *recordingDisplay) Abandon(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.abandoned = append(d.abandoned, name)
}

func (d *recordingDisplay) Wait() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.waited = true
}

func waitOrFail(t *testing.T, agg *Aggregator) map[string]uint64 {
	t.Helper()

	done := make(chan map[string]uint64, 1)
	go func() { done <- agg.Wait() }()

	select {
	case totals := <-done:
		return totals
	case <-time.After(5 * time.Second):
		t.Fatal("aggregator did not finish")
		return nil
	}
}

func TestAggregatorAccumulatesPerFile(t *testing.T) {
	display := newRecordingDisplay()
	agg := NewAggregator(display, 0)

	a, err := agg.Register("a", 10)
	require.NoError(t, err)
	b, err := agg.Register("b", 5)
	require.NoError(t, err)

	repA := agg.Reporter()
	repB := agg.Reporter()
	agg.Start(context.Background())

	for i := 0; i < 10; i++ {
		assert.True(t, repA.Send(ProgressUpdate{FileName: a, BytesTransmitted: 1}))
	}
	repB.Send(ProgressUpdate{FileName: b, BytesTransmitted: 2})
	repB.Send(ProgressUpdate{FileName: "unknown", BytesTransmitted: 100})

	repA.Release()
	repB.Release()

	totals := waitOrFail(t, agg)
	assert.Equal(t, map[string]uint64{"a": 10, "b": 2}, totals)
	assert.Equal(t, []string{"a"}, display.finished)
	assert.Equal(t, []string{"b"}, display.abandoned)
	assert.True(t, display.waited)
	assert.Equal(t, uint64(10), display.progress["a"])
}

func TestAggregatorDeduplicatesNames(t *testing.T) {
	agg := NewAggregator(nil, 0)

	first, err := agg.Register("same", 1)
	require.NoError(t, err)
	second, err := agg.Register("same", 1)
	require.NoError(t, err)

	assert.Equal(t, "same", first)
	assert.Equal(t, "same (2)", second)
}

func TestAggregatorRejectsLateRegistration(t *testing.T) {
	agg := NewAggregator(nil, 0)
	agg.Start(context.Background())

	_, err := agg.Register("late", 1)
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	waitOrFail(t, agg)
}

func TestAggregatorWithNoFilesTerminates(t *testing.T) {
	agg := NewAggregator(nil, 0)
	agg.Start(context.Background())

	assert.Empty(t, waitOrFail(t, agg))
}

func TestReporterCloneAndRelease(t *testing.T) {
	agg := NewAggregator(nil, 0)
	_, err := agg.Register("f", 3)
	require.NoError(t, err)

	rep := agg.Reporter()
	clone := rep.Clone()
	agg.Start(context.Background())

	rep.Release()
	rep.Release()
	assert.False(t, rep.Send(ProgressUpdate{FileName: "f", BytesTransmitted: 1}))

	assert.True(t, clone.Send(ProgressUpdate{FileName: "f", BytesTransmitted: 3}))
	clone.Release()

	assert.Equal(t, uint64(3), waitOrFail(t, agg)["f"])

	// The channel is closed, clones are dead on arrival
	late := clone.Clone()
	assert.False(t, late.Send(ProgressUpdate{FileName: "f", BytesTransmitted: 1}))
	late.Release()
}

func TestSendDoesNotBlockAfterCancel(t *testing.T) {
	agg := NewAggregator(nil, 1)
	_, err := agg.Register("f", 100)
	require.NoError(t, err)
	rep := agg.Reporter()

	ctx, cancel := context.WithCancel(context.Background())
	agg.Start(ctx)
	cancel()
	waitOrFail(t, agg)

	sent := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			rep.Send(ProgressUpdate{FileName: "f", BytesTransmitted: 1})
		}
		close(sent)
	}()

	select {
	case <-sent:
	case <-time.After(5 * time.Second):
		t.Fatal("Send blocked after the drain stopped")
	}
	rep.Release()
}

func TestRelayForwardsAndReleases(t *testing.T) {
	agg := NewAggregator(nil, 0)
	key, err := agg.Register("file", 6)
	require.NoError(t, err)

	mon := NewMonitor(&sliceSource{chunks: [][]byte{[]byte("abc"), []byte("def")}}, 0)
	relay := StartRelay(mon.Feed(), key, agg.Reporter())
	agg.Start(context.Background())

	for {
		if _, err := mon.Next(context.Background()); err != nil {
			break
		}
	}
	mon.Close()
	relay.Wait()

	assert.Equal(t, uint64(6), waitOrFail(t, agg)["file"])
}
