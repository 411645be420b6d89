package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"reshare/internal/processor"
	"reshare/internal/reporter"
	"reshare/pkg/logging"
	"reshare/pkg/types"
)

var (
	// ErrEmptyBatch is returned when a batch has no files
	ErrEmptyBatch = errors.New("no files to transfer")
	// ErrEmptyFile is reported for a file that transferred zero bytes
	ErrEmptyFile = errors.New("empty files not allowed")
)

// Sink is the destination of one file's chunks: a local file or an outbound
// HTTP body
type Sink interface {
	// WriteChunk writes a chunk in order
	WriteChunk(ctx context.Context, chunk []byte) error
	// Commit is called once the source is exhausted and returns the outcome
	Commit(ctx context.Context) (*types.FileInfo, error)
	// Abort discards the destination on a best-effort basis. It may be called
	// more than once.
	Abort(cause error)
}

// Transfer is an opened file transfer with a known length
type Transfer struct {
	Name   string
	Length uint64
	Source processor.ChunkSource
	Sink   Sink
}

// Opener resolves a descriptor into an open transfer
type Opener interface {
	Open(ctx context.Context, desc types.FileDescriptor, ns types.Namespace) (*Transfer, error)
}

// Result is the outcome of one file. The transfer succeeded when Err is nil.
type Result struct {
	Name string
	Info *types.FileInfo
	Err  error
}

// OK reports whether the transfer succeeded
func (r Result) OK() bool {
	return r.Err == nil
}

// Options tunes an Orchestrator
type Options struct {
	// Parallel caps concurrently running pipelines; 0 means no cap
	Parallel int
	// FeedLimit caps queued telemetry deltas per file
	FeedLimit int
	// ChannelSize is the capacity of the shared progress channel
	ChannelSize int
	// Display renders progress; nil discards it
	Display reporter.Display
}

// Orchestrator runs a batch of transfers concurrently and reduces them to one
// result per file. A failing file never cancels the others.
type Orchestrator struct {
	opts Options
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(opts Options) *Orchestrator {
	return &Orchestrator{opts: opts}
}

// Run transfers every descriptor and returns results in input order. The only
// error it returns is ErrEmptyBatch; per-file failures are in the results.
func (o *Orchestrator) Run(ctx context.Context, descs []types.FileDescriptor, ns types.Namespace, opener Opener) ([]Result, error) {
	if len(descs) == 0 {
		return nil, ErrEmptyBatch
	}

	log := logging.Component("orchestrator")
	results := make([]Result, len(descs))
	transfers := o.openAll(ctx, descs, ns, opener, results)

	agg := reporter.NewAggregator(o.opts.Display, o.opts.ChannelSize)
	keys := make([]string, len(descs))
	reporters := make([]*reporter.Reporter, len(descs))

	for i, t := range transfers {
		if t == nil {
			continue
		}
		key, err := agg.Register(t.Name, t.Length)
		if err != nil {
			// Unreachable before Start; keep the file without telemetry
			log.WithError(err).Warn("Progress registration failed")
			key = t.Name
		}
		keys[i] = key
		reporters[i] = agg.Reporter()
	}

	agg.Start(ctx)

	g := new(errgroup.Group)
	if o.opts.Parallel > 0 {
		g.SetLimit(o.opts.Parallel)
	}

	for i, t := range transfers {
		if t == nil {
			continue
		}
		g.Go(func() error {
			info, err := o.pipe(ctx, t, keys[i], reporters[i])
			if err != nil {
				log.WithError(err).WithField("file", t.Name).Debug("Transfer failed")
			}
			results[i] = Result{Name: t.Name, Info: info, Err: err}
			return nil
		})
	}
	g.Wait()

	for _, rep := range reporters {
		if rep != nil {
			rep.Release()
		}
	}
	agg.Wait()

	return results, nil
}

// openAll opens every descriptor concurrently. Open failures are written to
// results and leave a nil transfer.
func (o *Orchestrator) openAll(ctx context.Context, descs []types.FileDescriptor, ns types.Namespace, opener Opener, results []Result) []*Transfer {
	transfers := make([]*Transfer, len(descs))

	var wg sync.WaitGroup
	for i, desc := range descs {
		wg.Add(1)
		go func() {
			defer wg.Done()

			t, err := opener.Open(ctx, desc, ns)
			if err != nil {
				results[i] = Result{Name: desc.Name, Err: err}
				return
			}
			transfers[i] = t
		}()
	}
	wg.Wait()

	return transfers
}

// pipe moves one file: source -> monitor -> sink, with a relay forwarding the
// monitor's telemetry to the aggregator
func (o *Orchestrator) pipe(ctx context.Context, t *Transfer, key string, rep *reporter.Reporter) (*types.FileInfo, error) {
	if c, ok := t.Source.(io.Closer); ok {
		defer c.Close()
	}

	mon := reporter.NewMonitor(t.Source, o.opts.FeedLimit)
	relay := reporter.StartRelay(mon.Feed(), key, rep)
	defer relay.Wait()
	defer mon.Close()

	var sent uint64
	for {
		chunk, err := mon.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Sink.Abort(err)
			return nil, err
		}

		if err := t.Sink.WriteChunk(ctx, chunk); err != nil {
			t.Sink.Abort(err)
			return nil, err
		}
		sent += uint64(len(chunk))
	}

	if sent == 0 {
		t.Sink.Abort(ErrEmptyFile)
		return nil, fmt.Errorf("%s - %w", t.Name, ErrEmptyFile)
	}

	if t.Length != 0 && sent != t.Length {
		logging.Component("orchestrator").WithFields(map[string]interface{}{
			"file":     t.Name,
			"expected": t.Length,
			"actual":   sent,
		}).Warn("Transferred size differs from declared size")
	}

	info, err := t.Sink.Commit(ctx)
	if err != nil {
		t.Sink.Abort(err)
		return nil, err
	}

	return info, nil
}
