package reporter

import (
	"context"

	"reshare/internal/processor"
)

// Monitor is a transparent tap on a chunk sequence. Every chunk it passes through
// has its length published to a Feed; errors and the end of the sequence are passed
// through without a telemetry event.
type Monitor struct {
	src  processor.ChunkSource
	feed *Feed
}

// NewMonitor wraps src. limit is passed to NewFeed.
func NewMonitor(src processor.ChunkSource, limit int) *Monitor {
	return &Monitor{
		src:  src,
		feed: NewFeed(limit),
	}
}

// Next returns the next chunk of the wrapped source unchanged
func (m *Monitor) Next(ctx context.Context) ([]byte, error) {
	chunk, err := m.src.Next(ctx)
	if err == nil {
		m.feed.Publish(uint64(len(chunk)))
	}
	return chunk, err
}

// Feed returns the telemetry channel carrying chunk lengths
func (m *Monitor) Feed() <-chan uint64 {
	return m.feed.C()
}

// Close ends the telemetry channel once queued lengths are delivered
func (m *Monitor) Close() {
	m.feed.Close()
}
