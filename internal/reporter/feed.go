package reporter

import "sync"

// DefaultFeedLimit caps the number of queued deltas in a Feed
const DefaultFeedLimit = 65536

// Feed is a best-effort telemetry queue. Publish never blocks: deltas are queued
// and pumped to C by a background goroutine. Once the queue holds limit entries new
// deltas are added onto the last queued entry, which bounds memory without changing
// the sum delivered to the consumer.
//
// The consumer must drain C until it is closed.
type Feed struct {
	mu     sync.Mutex
	queue  []uint64
	limit  int
	closed bool

	signal chan struct{}
	out    chan uint64
}

// NewFeed creates a feed and starts its pump. A non-positive limit selects DefaultFeedLimit.
func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}

	f := &Feed{
		limit:  limit,
		signal: make(chan struct{}, 1),
		out:    make(chan uint64),
	}
	go f.pump()

	return f
}

// C returns the receiving side of the feed. It is closed after Close once every
// queued delta has been delivered.
func (f *Feed) C() <-chan uint64 {
	return f.out
}

// Publish queues n. Publishing to a closed feed is a no-op.
func (f *Feed) Publish(n uint64) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	if len(f.queue) >= f.limit {
		f.queue[len(f.queue)-1] += n
	} else {
		f.queue = append(f.queue, n)
	}
	f.mu.Unlock()

	f.wake()
}

// Close stops accepting deltas. Already queued deltas are still delivered.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()

	f.wake()
}

func (f *Feed) wake() {
	select {
	case f.signal <- struct{}{}:
	default:
	}
}

func (f *Feed) pump() {
	defer close(f.out)

	for {
		f.mu.Lock()
		batch := f.queue
		f.queue = nil
		closed := f.closed
		f.mu.Unlock()

		for _, n := range batch {
			f.out <- n
		}

		if len(batch) == 0 {
			if closed {
				return
			}
			<-f.signal
		}
	}
}
