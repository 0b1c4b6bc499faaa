package pcsc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ebfe/scard"
	"github.com/ruteri/silo-provisioner/interfaces"
)

type Transport struct {
	ctx          *scard.Context
	pollInterval time.Duration
	log          *slog.Logger
}

// New establishes a PC/SC context. pollInterval bounds how long a state change
// wait blocks before the reader list is refreshed.
func New(pollInterval time.Duration, log *slog.Logger) (*Transport, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, errors.Join(interfaces.ErrTransport, err)
	}
	return &Transport{ctx: ctx, pollInterval: pollInterval, log: log}, nil
}

type readerSlot struct {
	state scard.StateFlag
	card  *scard.Card
}

func (t *Transport) Events(ctx context.Context) (<-chan interfaces.ReaderEvent, error) {
	events := make(chan interfaces.ReaderEvent)
	go t.poll(ctx, events)
	return events, nil
}

func (t *Transport) poll(ctx context.Context, events chan<- interfaces.ReaderEvent) {
	defer close(events)
	slots := map[string]*readerSlot{}
	defer func() {
		for _, slot := range slots {
			disconnect(slot)
		}
	}()

	emit := func(ev interfaces.ReaderEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	stop := context.AfterFunc(ctx, func() { t.ctx.Cancel() })
	defer stop()

	for ctx.Err() == nil {
		names, err := t.ctx.ListReaders()
		if err != nil && !errors.Is(err, scard.ErrNoReadersAvailable) {
			if !emit(interfaces.ReaderEvent{Type: interfaces.ReaderError, Err: errors.Join(interfaces.ErrTransport, err)}) {
				return
			}
			if !sleep(ctx, t.pollInterval) {
				return
			}
			continue
		}

		present := map[string]bool{}
		for _, name := range names {
			present[name] = true
			if _, ok := slots[name]; !ok {
				slots[name] = &readerSlot{state: scard.StateUnaware}
				if !emit(interfaces.ReaderEvent{Type: interfaces.ReaderAttached, ReaderName: name}) {
					return
				}
			}
		}
		for name, slot := range slots {
			if !present[name] {
				disconnect(slot)
				delete(slots, name)
				if !emit(interfaces.ReaderEvent{Type: interfaces.ReaderRemoved, ReaderName: name}) {
					return
				}
			}
		}

		if len(slots) == 0 {
			if !sleep(ctx, t.pollInterval) {
				return
			}
			continue
		}

		// the wait times out every pollInterval so attach and removal are picked up
		states := make([]scard.ReaderState, 0, len(slots))
		for name, slot := range slots {
			states = append(states, scard.ReaderState{Reader: name, CurrentState: slot.state})
		}

		err = t.ctx.GetStatusChange(states, t.pollInterval)
		switch {
		case errors.Is(err, scard.ErrTimeout), errors.Is(err, scard.ErrUnknownReader):
			continue
		case errors.Is(err, scard.ErrCancelled):
			return
		case err != nil:
			if !emit(interfaces.ReaderEvent{Type: interfaces.ReaderError, Err: errors.Join(interfaces.ErrTransport, err)}) {
				return
			}
			if !sleep(ctx, t.pollInterval) {
				return
			}
			continue
		}

		for _, rs := range states {
			slot, ok := slots[rs.Reader]
			if !ok {
				continue
			}
			wasPresent := slot.state&scard.StatePresent != 0
			slot.state = rs.EventState &^ scard.StateChanged
			isPresent := slot.state&scard.StatePresent != 0

			switch {
			case isPresent && !wasPresent:
				card, err := t.ctx.Connect(rs.Reader, scard.ShareShared, scard.ProtocolAny)
				if err != nil {
					t.log.Warn("Failed to connect to card", slog.String("reader", rs.Reader), "err", err)
					continue
				}
				slot.card = card
				if !emit(interfaces.ReaderEvent{
					Type:       interfaces.CardPresent,
					ReaderName: rs.Reader,
					Reader:     &cardReader{name: rs.Reader, card: card},
				}) {
					return
				}
			case !isPresent && wasPresent:
				disconnect(slot)
				t.log.Debug("card removed", slog.String("reader", rs.Reader))
			}
		}
	}
}

func disconnect(slot *readerSlot) {
	if slot.card != nil {
		slot.card.Disconnect(scard.LeaveCard)
		slot.card = nil
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func (t *Transport) Close() error {
	return t.ctx.Release()
}
