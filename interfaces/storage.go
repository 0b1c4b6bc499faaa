package interfaces

import (
	"context"
	"fmt"
)

// Location names a lifecycle store directory.
type Location int

const (
	// SignaturesLocation holds ad hoc signature captures, last write wins.
	SignaturesLocation Location = iota
	// ExportLocation holds write-once exported attestations.
	ExportLocation
	// VerifiedLocation holds attestations promoted after verification.
	VerifiedLocation
)

// String returns directory name.
func (l Location) String() string {
	switch l {
	case SignaturesLocation:
		return "signatures"
	case ExportLocation:
		return "export"
	case VerifiedLocation:
		return "verified"
	default:
		return fmt.Sprintf("location(%d)", int(l))
	}
}

// RecordBackend persists record documents keyed by primary-key hash.
type RecordBackend interface {
	// Fetch reads the record at loc. Returns ErrRecordNotFound if absent.
	Fetch(ctx context.Context, hash KeyHash, loc Location) ([]byte, error)

	// Exists reports whether a record is present at loc.
	Exists(ctx context.Context, hash KeyHash, loc Location) (bool, error)

	// Put writes the record at loc, replacing any previous content.
	Put(ctx context.Context, hash KeyHash, loc Location, data []byte) error

	// Create writes the record at loc only if none exists. The returned bool
	// is false when a record was already present; nothing is written then.
	Create(ctx context.Context, hash KeyHash, loc Location, data []byte) (bool, error)

	// Move relocates a record between locations atomically.
	Move(ctx context.Context, hash KeyHash, from, to Location) error

	// LocationURI returns the URI identifying this backend.
	LocationURI() string
}
