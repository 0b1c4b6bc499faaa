// Package interfaces defines the core types and contracts shared by the tag
// provisioning components, separating interface definitions from their
// implementations.
//
// # Identity
//
// KeyHash is the SHA-256 of a tag's 64-byte primary public key. It is the only
// identity the attestation lifecycle accepts, and its 0x-prefixed hex form names
// every persisted record file.
//
// # Transport
//
// Transport delivers reader and card events; Reader exposes the two memory
// primitives the protocol engine consumes:
//
//	type Reader interface {
//	    Name() string
//	    ReadPage(ctx context.Context, page byte, length int) ([]byte, error)
//	    WritePage(ctx context.Context, page byte, data []byte) error
//	}
//
// # Errors
//
// The error taxonomy is expressed as sentinel errors matched with errors.Is:
//
//   - ErrTransport: a page read or write failed or returned short data
//   - ErrMalformedTag: a decoded region is shorter than its declared fields
//   - ErrVerificationFailed: the signature check returned false
//   - ErrLifecycleConflict: export over an existing record, or nothing to verify
//   - ErrRegistryLoad: the device registry file is missing or unparsable
//
// Only ErrTransport and ErrMalformedTag abort a workflow. The others are
// informational outcomes.
package interfaces
