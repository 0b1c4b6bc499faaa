package provisioner

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/ruteri/silo-provisioner/interfaces"
	"github.com/ruteri/silo-provisioner/metrics"
	"go.uber.org/atomic"
)

// Processor runs one workflow to resolution.
type Processor interface {
	Process(ctx context.Context, reader interfaces.Reader) *Result
}

// Stats is a point-in-time view of listener activity.
type Stats struct {
	Busy       bool     `json:"busy"`
	Readers    int64    `json:"readers"`
	Processed  uint64   `json:"processed"`
	Ignored    uint64   `json:"ignored"`
	LastResult *Summary `json:"lastResult,omitempty"`
}

// Summary is the serializable part of a Result.
type Summary struct {
	WorkflowID string   `json:"workflowId"`
	Reader     string   `json:"reader"`
	Resolution string   `json:"resolution"`
	KeyHash    string   `json:"keyHash,omitempty"`
	Verified   bool     `json:"verified"`
	Outcomes   []string `json:"outcomes,omitempty"`
	Error      string   `json:"error,omitempty"`
}

func summarize(r *Result) *Summary {
	s := &Summary{
		WorkflowID: r.WorkflowID,
		Reader:     r.Reader,
		Resolution: r.Resolution.String(),
		Verified:   r.Verified,
	}
	if !r.KeyHash.IsZero() {
		s.KeyHash = r.KeyHash.String()
	}
	for _, o := range r.Outcomes {
		s.Outcomes = append(s.Outcomes, o.Label())
	}
	if r.Err != nil {
		s.Error = r.Err.Error()
	}
	return s
}

// Listener dispatches card-present events to a Processor, one workflow at a time.
type Listener struct {
	transport  interfaces.Transport
	processor  Processor
	singleShot bool
	log        *slog.Logger

	busy      atomic.Bool
	readers   atomic.Int64
	processed atomic.Uint64
	ignored   atomic.Uint64

	mu   sync.Mutex
	last *Summary
}

// NewListener creates a listener. With singleShot set, Run returns after the
// first workflow resolves.
func NewListener(transport interfaces.Transport, processor Processor, singleShot bool, log *slog.Logger) *Listener {
	return &Listener{
		transport:  transport,
		processor:  processor,
		singleShot: singleShot,
		log:        log,
	}
}

// Run consumes transport events until ctx is done, the transport closes, or a
// single-shot workflow resolves. It waits for an in-flight workflow before returning.
func (l *Listener) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := l.transport.Events(ctx)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			l.handle(ctx, cancel, &wg, ev)
		}
	}
}

func (l *Listener) handle(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup, ev interfaces.ReaderEvent) {
	log := l.log.With(slog.String("reader", ev.ReaderName))

	switch ev.Type {
	case interfaces.ReaderAttached:
		l.readers.Inc()
		metrics.ReadersAttached.Inc()
		log.Info("device attached")
	case interfaces.ReaderRemoved:
		l.readers.Dec()
		metrics.ReadersAttached.Dec()
		log.Info("device removed")
	case interfaces.ReaderError:
		log.Error("reader error", "err", ev.Err)
	case interfaces.CardPresent:
		if ev.Reader == nil {
			log.Error("card event without reader", "err", errors.New("missing reader"))
			return
		}
		if !l.busy.CompareAndSwap(false, true) {
			l.ignored.Inc()
			log.Warn("Ignoring card, a workflow is in progress")
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer l.busy.Store(false)

			result := l.processor.Process(ctx, ev.Reader)
			l.processed.Inc()
			l.mu.Lock()
			l.last = summarize(result)
			l.mu.Unlock()

			if l.singleShot {
				log.Info("Single scan complete, stopping listener")
				cancel()
			}
		}()
	}
}

// Busy reports whether a workflow is in flight.
func (l *Listener) Busy() bool {
	return l.busy.Load()
}

func (l *Listener) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		Busy:       l.busy.Load(),
		Readers:    l.readers.Load(),
		Processed:  l.processed.Load(),
		Ignored:    l.ignored.Load(),
		LastResult: l.last,
	}
}
