package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ruteri/silo-provisioner/interfaces"
	"github.com/ruteri/silo-provisioner/metrics"
)

// Outcome is the informational result of a lifecycle operation.
type Outcome int

const (
	OutcomeSaved Outcome = iota
	OutcomeExported
	OutcomeAlreadyExported
	OutcomeExportRefused
	OutcomePromoted
	OutcomeAlreadyVerified
	OutcomeNothingToVerify
)

// String returns the operator-facing message for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSaved:
		return "Saved signature for the device."
	case OutcomeExported:
		return "Successfully exported JSON for device."
	case OutcomeAlreadyExported:
		return "Found existing JSON for public key hash."
	case OutcomeExportRefused:
		return "Refusing to export, missing param required for smart contract or not command 0x56"
	case OutcomePromoted:
		return "Found existing JSON for public key hash, moved to verified."
	case OutcomeAlreadyVerified:
		return "Already verified successfully."
	case OutcomeNothingToVerify:
		return "WARNING: no JSON file found to verify"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Label is the metric label value for the outcome.
func (o Outcome) Label() string {
	switch o {
	case OutcomeSaved:
		return "saved"
	case OutcomeExported:
		return "exported"
	case OutcomeAlreadyExported:
		return "already_exported"
	case OutcomeExportRefused:
		return "export_refused"
	case OutcomePromoted:
		return "promoted"
	case OutcomeAlreadyVerified:
		return "already_verified"
	case OutcomeNothingToVerify:
		return "nothing_to_verify"
	default:
		return "unknown"
	}
}

// Conflict returns ErrLifecycleConflict for outcomes that left the store unchanged
// because of its current state, and nil otherwise.
func (o Outcome) Conflict() error {
	switch o {
	case OutcomeAlreadyExported, OutcomeExportRefused, OutcomeNothingToVerify:
		return fmt.Errorf("%w: %s", interfaces.ErrLifecycleConflict, o)
	default:
		return nil
	}
}

// RecordState is where a key hash currently sits in the lifecycle.
type RecordState int

const (
	// StatePending means no exported or verified record exists.
	StatePending RecordState = iota
	StateExported
	StateVerified
)

func (s RecordState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateExported:
		return "exported"
	case StateVerified:
		return "verified"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Lifecycle moves attestation records through pending, exported and verified.
// Operations on one key hash are mutually exclusive within the process; the
// backend's create-if-absent and move primitives carry the invariant across processes.
type Lifecycle struct {
	backend interfaces.RecordBackend
	locks   *keyedMutex[interfaces.KeyHash]
	log     *slog.Logger
}

func NewLifecycle(backend interfaces.RecordBackend, log *slog.Logger) *Lifecycle {
	return &Lifecycle{
		backend: backend,
		locks:   newKeyedMutex[interfaces.KeyHash](),
		log:     log,
	}
}

// SaveSignature writes a signature-only record. Last write wins.
func (l *Lifecycle) SaveSignature(ctx context.Context, record *interfaces.AttestationRecord) (Outcome, error) {
	data, err := json.Marshal(signatureOnly(record))
	if err != nil {
		return 0, fmt.Errorf("encoding signature record: %w", err)
	}

	unlock := l.locks.Lock(record.Hash)
	defer unlock()

	if err := l.backend.Put(ctx, record.Hash, interfaces.SignaturesLocation, data); err != nil {
		return 0, fmt.Errorf("saving signature record: %w", err)
	}
	return l.report(record.Hash, OutcomeSaved), nil
}

// ExportAttestation writes the full record to the export location once. An
// existing export is never overwritten. Only the export command may create one.
func (l *Lifecycle) ExportAttestation(ctx context.Context, record *interfaces.AttestationRecord) (Outcome, error) {
	unlock := l.locks.Lock(record.Hash)
	defer unlock()

	exists, err := l.backend.Exists(ctx, record.Hash, interfaces.ExportLocation)
	if err != nil {
		return 0, fmt.Errorf("checking export record: %w", err)
	}
	if exists {
		return l.report(record.Hash, OutcomeAlreadyExported), nil
	}
	if record.Command != interfaces.CommandExport {
		return l.report(record.Hash, OutcomeExportRefused), nil
	}

	data, err := json.Marshal(record)
	if err != nil {
		return 0, fmt.Errorf("encoding export record: %w", err)
	}

	created, err := l.backend.Create(ctx, record.Hash, interfaces.ExportLocation, data)
	if err != nil {
		return 0, fmt.Errorf("exporting record: %w", err)
	}
	if !created {
		return l.report(record.Hash, OutcomeAlreadyExported), nil
	}
	return l.report(record.Hash, OutcomeExported), nil
}

// PromoteToVerified moves an exported record to the verified location.
func (l *Lifecycle) PromoteToVerified(ctx context.Context, hash interfaces.KeyHash) (Outcome, error) {
	unlock := l.locks.Lock(hash)
	defer unlock()

	err := l.backend.Move(ctx, hash, interfaces.ExportLocation, interfaces.VerifiedLocation)
	if err == nil {
		return l.report(hash, OutcomePromoted), nil
	}
	if !errors.Is(err, interfaces.ErrRecordNotFound) {
		return 0, fmt.Errorf("promoting record: %w", err)
	}

	verified, err := l.backend.Exists(ctx, hash, interfaces.VerifiedLocation)
	if err != nil {
		return 0, fmt.Errorf("checking verified record: %w", err)
	}
	if verified {
		return l.report(hash, OutcomeAlreadyVerified), nil
	}
	return l.report(hash, OutcomeNothingToVerify), nil
}

// Lookup reports the lifecycle state of hash and the stored record, if any.
func (l *Lifecycle) Lookup(ctx context.Context, hash interfaces.KeyHash) (RecordState, *interfaces.AttestationRecord, error) {
	unlock := l.locks.Lock(hash)
	defer unlock()

	for _, candidate := range []struct {
		loc   interfaces.Location
		state RecordState
	}{
		{interfaces.VerifiedLocation, StateVerified},
		{interfaces.ExportLocation, StateExported},
	} {
		data, err := l.backend.Fetch(ctx, hash, candidate.loc)
		if errors.Is(err, interfaces.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return StatePending, nil, fmt.Errorf("reading %s record: %w", candidate.loc, err)
		}

		record := &interfaces.AttestationRecord{}
		if err := json.Unmarshal(data, record); err != nil {
			return StatePending, nil, fmt.Errorf("decoding %s record: %w", candidate.loc, err)
		}
		record.Hash = hash
		return candidate.state, record, nil
	}
	return StatePending, nil, nil
}

func (l *Lifecycle) report(hash interfaces.KeyHash, outcome Outcome) Outcome {
	metrics.LifecycleOutcomesTotal.WithLabelValues(outcome.Label()).Inc()
	l.log.Info(outcome.String(),
		slog.String("hash", hash.String()),
		slog.String("location", l.backend.LocationURI()))
	return outcome
}

func signatureOnly(record *interfaces.AttestationRecord) *interfaces.AttestationRecord {
	return &interfaces.AttestationRecord{
		PrimaryPublicKey:     record.PrimaryPublicKey,
		PrimaryPublicKeyHash: record.PrimaryPublicKeyHash,
		Digest:               record.Digest,
		Signature:            record.Signature,
		SigningKey:           record.SigningKey,
	}
}
