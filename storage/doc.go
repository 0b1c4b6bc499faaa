// Package storage keeps attestation records and moves them through their lifecycle.
//
// Records are JSON documents named after the tag's primary public key hash
// and kept in one of three locations:
//
//   - signatures/ holds the latest signature of a tag, overwritten on every save
//   - export/ holds the full attestation, written once
//   - verified/ holds attestations that were exported and then re-read successfully
//
// A record moves pending → exported → verified and never back. Lifecycle
// serializes operations on the same hash in-process, while the file backend
// relies on os.Link and os.Rename so that concurrent processes sharing a data
// directory cannot both win an export or a promotion.
//
// # Backend locations
//
// BackendFor accepts:
//
//   - a plain directory path, or file:///var/lib/silo
//   - memory:// for an in-process store used by tests and dry runs
//
// # Usage Example
//
//	backend, err := storage.BackendFor("file:///var/lib/silo", logger)
//	if err != nil {
//	    return err
//	}
//	lifecycle := storage.NewLifecycle(backend, logger)
//	outcome, err := lifecycle.ExportAttestation(ctx, record)
//	if err == nil && outcome.Conflict() != nil {
//	    logger.Warn(outcome.String())
//	}
package storage
