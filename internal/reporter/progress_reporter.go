package reporter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// DefaultChannelSize is the capacity of the shared progress channel
const DefaultChannelSize = 40000

// ErrAlreadyStarted is returned when a file is registered after the drain started
var ErrAlreadyStarted = errors.New("progress aggregator already started")

// Display renders per-file progress. All calls except Add come from the drain
// goroutine; Add is called by Register before the drain starts.
type Display interface {
	Add(name string, total uint64)
	Increment(name string, n uint64)
	Finish(name string)
	Abandon(name string)
	// Wait flushes the display after every counter was finalized
	Wait()
}

// NopDisplay discards everything
type NopDisplay struct{}

func (NopDisplay) Add(string, uint64)       {}
func (NopDisplay) Increment(string, uint64) {}
func (NopDisplay) Finish(string)            {}
func (NopDisplay) Abandon(string)           {}
func (NopDisplay) Wait()                    {}

type counter struct {
	total uint64
	done  uint64
}

// Aggregator fans in progress updates from many relays. It owns one counter per
// registered file; counters are only touched by the drain goroutine.
//
// Protocol: Register every file, hand out Reporter handles, Start the drain, then
// Wait for it. The drain ends once every reporter has been released.
type Aggregator struct {
	display  Display
	updates  chan ProgressUpdate
	counters map[string]*counter
	order    []string

	mu      sync.Mutex
	refs    int
	started bool
	self    *Reporter

	finished chan struct{}
	totals   map[string]uint64
}

// NewAggregator creates an aggregator. A nil display selects NopDisplay and a
// non-positive channelSize selects DefaultChannelSize.
func NewAggregator(display Display, channelSize int) *Aggregator {
	if display == nil {
		display = NopDisplay{}
	}
	if channelSize <= 0 {
		channelSize = DefaultChannelSize
	}

	a := &Aggregator{
		display:  display,
		updates:  make(chan ProgressUpdate, channelSize),
		counters: make(map[string]*counter),
		finished: make(chan struct{}),
		refs:     1,
	}
	a.self = &Reporter{agg: a}

	return a
}

// Register creates a counter for a file and returns the key its updates must
// carry. Names already registered get a " (2)", " (3)", ... suffix.
func (a *Aggregator) Register(name string, total uint64) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return "", ErrAlreadyStarted
	}

	key := name
	for i := 2; ; i++ {
		if _, exists := a.counters[key]; !exists {
			break
		}
		key = fmt.Sprintf("%s (%d)", name, i)
	}

	a.counters[key] = &counter{total: total}
	a.order = append(a.order, key)
	a.display.Add(key, total)

	return key, nil
}

// Reporter returns a new sending handle. Every handle must be released.
func (a *Aggregator) Reporter() *Reporter {
	return a.self.Clone()
}

// Start launches the drain and releases the aggregator's own handle
func (a *Aggregator) Start(ctx context.Context) {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return
	}
	a.started = true
	a.mu.Unlock()

	go a.drain(ctx)
	a.self.Release()
}

// Wait blocks until the drain has finalized every counter and returns the bytes
// accumulated per file
func (a *Aggregator) Wait() map[string]uint64 {
	<-a.finished
	return a.totals
}

func (a *Aggregator) drain(ctx context.Context) {
	defer close(a.finished)

	for {
		select {
		case update, ok := <-a.updates:
			if !ok {
				a.finalize()
				return
			}
			c, exists := a.counters[update.FileName]
			if !exists {
				continue
			}
			c.done += update.BytesTransmitted
			a.display.Increment(update.FileName, update.BytesTransmitted)
		case <-ctx.Done():
			a.finalize()
			return
		}
	}
}

func (a *Aggregator) finalize() {
	totals := make(map[string]uint64, len(a.counters))

	for _, name := range a.order {
		c := a.counters[name]
		totals[name] = c.done
		if c.done == c.total {
			a.display.Finish(name)
		} else {
			a.display.Abandon(name)
		}
	}

	a.display.Wait()
	a.totals = totals
}

func (a *Aggregator) acquire() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.refs == 0 {
		return false
	}
	a.refs++
	return true
}

func (a *Aggregator) release() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.refs--
	if a.refs == 0 {
		close(a.updates)
	}
}

// Reporter is a sending handle of the shared progress channel. A Reporter is
// owned by one goroutine; use Clone to share.
type Reporter struct {
	agg      *Aggregator
	released atomic.Bool
	once     sync.Once
}

// Clone returns a new handle to the same aggregator. Cloning after the channel
// was closed returns a released handle whose sends are dropped.
func (r *Reporter) Clone() *Reporter {
	clone := &Reporter{agg: r.agg}
	if !r.agg.acquire() {
		clone.released.Store(true)
		clone.once.Do(func() {})
	}
	return clone
}

// Send forwards an update. It reports false when the update was dropped because
// the handle was released or the drain is gone.
func (r *Reporter) Send(update ProgressUpdate) bool {
	if r.released.Load() {
		return false
	}

	select {
	case r.agg.updates <- update:
		return true
	case <-r.agg.finished:
		return false
	}
}

// Release drops the handle. It is safe to call more than once.
func (r *Reporter) Release() {
	r.once.Do(func() {
		r.released.Store(true)
		r.agg.release()
	})
}
