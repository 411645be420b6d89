package reporter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sum(ch <-chan uint64) (total uint64, count int) {
	for n := range ch {
		total += n
		count++
	}
	return total, count
}

func TestFeedPublishNeverBlocks(t *testing.T) {
	f := NewFeed(0)

	done := make(chan struct{})
	go func() {
		// Nobody consumes while publishing
		for i := 0; i < 100000; i++ {
			f.Publish(1)
		}
		f.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Publish blocked without a consumer")
	}

	total, _ := sum(f.C())
	assert.Equal(t, uint64(100000), total)
}

func TestFeedFoldsAtLimit(t *testing.T) {
	f := NewFeed(4)

	for i := 1; i <= 1000; i++ {
		f.Publish(uint64(i))
	}
	f.Close()

	total, count := sum(f.C())
	assert.Equal(t, uint64(1000*1001/2), total)
	// Bounded by the limit plus whatever the pump took early
	assert.LessOrEqual(t, count, 1000)
}

func TestFeedPublishAfterClose(t *testing.T) {
	f := NewFeed(0)
	f.Publish(5)
	f.Close()
	f.Publish(7)
	f.Close()

	total, count := sum(f.C())
	assert.Equal(t, uint64(5), total)
	assert.Equal(t, 1, count)
}

func TestFeedPreservesOrder(t *testing.T) {
	f := NewFeed(0)
	for i := uint64(1); i <= 50; i++ {
		f.Publish(i)
	}
	f.Close()

	var got []uint64
	for n := range f.C() {
		got = append(got, n)
	}
	require.Len(t, got, 50)
	for i, n := range got {
		assert.Equal(t, uint64(i+1), n)
	}
}
