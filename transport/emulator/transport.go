package emulator

import (
	"context"
	"errors"
	"sync"

	"github.com/ruteri/silo-provisioner/interfaces"
)

var ErrClosed = errors.New("emulator transport closed")

// Transport presents emulated tags to a listener as if on one attached reader.
type Transport struct {
	name string

	mu      sync.RWMutex
	events  chan interfaces.ReaderEvent
	started bool
	closed  bool
}

// NewTransport creates a transport with a single reader called name. Up to
// queue events are buffered before Present blocks.
func NewTransport(name string, queue int) *Transport {
	return &Transport{
		name:   name,
		events: make(chan interfaces.ReaderEvent, queue+1),
	}
}

// Events announces the reader and returns the event stream. It may be called once.
func (t *Transport) Events(ctx context.Context) (<-chan interfaces.ReaderEvent, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}
	if t.started {
		return nil, errors.New("emulator events already consumed")
	}
	t.started = true
	t.events <- interfaces.ReaderEvent{Type: interfaces.ReaderAttached, ReaderName: t.name}

	go func() {
		<-ctx.Done()
		t.Close()
	}()
	return t.events, nil
}

// Present places tag on the reader.
func (t *Transport) Present(ctx context.Context, tag *Tag) error {
	return t.send(ctx, interfaces.ReaderEvent{Type: interfaces.CardPresent, ReaderName: t.name, Reader: tag})
}

// Fail reports a reader error.
func (t *Transport) Fail(ctx context.Context, err error) error {
	return t.send(ctx, interfaces.ReaderEvent{Type: interfaces.ReaderError, ReaderName: t.name, Err: err})
}

// Remove detaches the reader.
func (t *Transport) Remove(ctx context.Context) error {
	return t.send(ctx, interfaces.ReaderEvent{Type: interfaces.ReaderRemoved, ReaderName: t.name})
}

func (t *Transport) send(ctx context.Context, ev interfaces.ReaderEvent) error {
	// Close waits for in-flight sends, so the channel stays open while held.
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return ErrClosed
	}

	select {
	case t.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the event stream.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	close(t.events)
	return nil
}
