package reporter

// ProgressUpdate is a file-attributed progress delta. Consumers accumulate it.
type ProgressUpdate struct {
	FileName         string
	BytesTransmitted uint64
}

// Relay forwards raw deltas from one monitor to the aggregator
type Relay struct {
	done chan struct{}
}

// StartRelay starts forwarding deltas from feed as updates for fileName. When feed
// is closed the relay releases rep, so the aggregator can observe that every
// relay has finished. Failed forwards are dropped.
func StartRelay(feed <-chan uint64, fileName string, rep *Reporter) *Relay {
	r := &Relay{done: make(chan struct{})}

	go func() {
		defer close(r.done)
		defer rep.Release()

		for n := range feed {
			rep.Send(ProgressUpdate{
				FileName:         fileName,
				BytesTransmitted: n,
			})
		}
	}()

	return r
}

// Wait blocks until the relay has released its reporter
func (r *Relay) Wait() {
	<-r.done
}
