package interfaces

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// KeyHash is the SHA-256 of a primary public key.
type KeyHash [32]byte

// NewKeyHashFromBytes creates a key hash from a raw 32-byte digest.
func NewKeyHashFromBytes(source []byte) (KeyHash, error) {
	if len(source) != 32 {
		return KeyHash{}, errors.New("invalid key hash conversion from bytes: incorrect length")
	}

	var hash KeyHash
	copy(hash[:], source)
	return hash, nil
}

// NewKeyHashFromHex parses a 64-character hex key hash. The 0x prefix is optional.
func NewKeyHashFromHex(source string) (KeyHash, error) {
	clean := strings.TrimPrefix(strings.TrimPrefix(source, "0x"), "0X")
	if len(clean) != 64 {
		return KeyHash{}, errors.New("invalid key hash length: hex string must be 64 characters")
	}

	hashBytes, err := hexutil.Decode("0x" + clean)
	if err != nil {
		return KeyHash{}, fmt.Errorf("invalid hex format: %w", err)
	}

	return NewKeyHashFromBytes(hashBytes)
}

// String returns the 0x-prefixed lowercase hex form used for record file names.
func (h KeyHash) String() string {
	return hexutil.Encode(h[:])
}

// Bytes returns the raw 32-byte hash.
func (h KeyHash) Bytes() []byte {
	return h[:]
}

// IsZero reports whether the hash is unset.
func (h KeyHash) IsZero() bool {
	return h == KeyHash{}
}

// CommandCode is the one-byte command written at the head of a challenge record.
type CommandCode byte

const (
	// CommandSign requests a standard signature over the challenge digest.
	CommandSign CommandCode = 0x00
	// CommandMint provisions the tag's internal key before signing.
	CommandMint CommandCode = 0x55
	// CommandExport exposes the provisioned key without re-provisioning.
	CommandExport CommandCode = 0x56
)

// ParseCommandCode parses a two-digit hex command code such as "00" or "0x56".
func ParseCommandCode(s string) (CommandCode, error) {
	clean := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(clean) == 1 {
		clean = "0" + clean
	}
	if len(clean) != 2 {
		return 0, fmt.Errorf("invalid command code %q: expected one hex byte", s)
	}

	v, err := strconv.ParseUint(clean, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid command code %q: %w", s, err)
	}
	return CommandCode(v), nil
}

// String returns the two-digit lowercase hex form, e.g. "56".
func (c CommandCode) String() string {
	return fmt.Sprintf("%02x", byte(c))
}

// ExposesInternalKey reports whether the tag places its provisioning public key
// in the internal-signature field of the output region for this command.
func (c CommandCode) ExposesInternalKey() bool {
	return c == CommandMint || c == CommandExport
}
