package interfaces

import "errors"

var (
	// ErrTransport is returned when a page read or write fails or returns short data.
	ErrTransport = errors.New("tag transport failure")

	// ErrMalformedTag is returned when a memory region is too short for its declared fields.
	ErrMalformedTag = errors.New("malformed tag memory")

	// ErrVerificationFailed marks a signature that did not verify. Not fatal to a workflow.
	ErrVerificationFailed = errors.New("signature verification failed")

	// ErrLifecycleConflict marks an export over an existing record or a promotion
	// with nothing to promote. Reported, never raised.
	ErrLifecycleConflict = errors.New("attestation lifecycle conflict")

	// ErrRegistryLoad is returned when the device registry file is missing or unparsable.
	ErrRegistryLoad = errors.New("device registry load failed")

	// ErrRecordNotFound is returned when no record file exists for a key hash.
	ErrRecordNotFound = errors.New("attestation record not found")
)
