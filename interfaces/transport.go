package interfaces

import "context"

// Reader is a contactless reader with a tag in its field.
type Reader interface {
	// Name identifies the reader for logging.
	Name() string

	// ReadPage reads length bytes starting at the given 4-byte page.
	ReadPage(ctx context.Context, page byte, length int) ([]byte, error)

	// WritePage writes data to consecutive pages starting at page.
	// The length of data must be a multiple of the page size.
	WritePage(ctx context.Context, page byte, data []byte) error
}

// ReaderEventType distinguishes the events a Transport delivers.
type ReaderEventType int

const (
	ReaderAttached ReaderEventType = iota
	CardPresent
	ReaderRemoved
	ReaderError
)

// String returns event name.
func (t ReaderEventType) String() string {
	switch t {
	case ReaderAttached:
		return "reader-attached"
	case CardPresent:
		return "card-present"
	case ReaderRemoved:
		return "reader-removed"
	case ReaderError:
		return "reader-error"
	default:
		return "unknown"
	}
}

// ReaderEvent is a single transport notification. Reader is set for
// CardPresent events; Err is set for ReaderError events.
type ReaderEvent struct {
	Type       ReaderEventType
	ReaderName string
	Reader     Reader
	Err        error
}

// Transport enumerates readers and reports card presence.
type Transport interface {
	// Events starts delivering reader events. The channel is closed when ctx
	// is done or the transport shuts down.
	Events(ctx context.Context) (<-chan ReaderEvent, error)

	// Close releases the transport.
	Close() error
}
