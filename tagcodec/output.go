package tagcodec

import (
	"encoding/hex"
	"fmt"

	"github.com/ruteri/silo-provisioner/interfaces"
	"golang.org/x/crypto/cryptobyte"
)

// SignatureResult is the decoded output region read after a challenge.
type SignatureResult struct {
	LastHash          []byte
	ExternalSignature []byte
	// InternalSignature holds the provisioning public key after commands 0x55 and 0x56.
	InternalSignature []byte
	Counter           byte
}

// DecodeOutputRegion slices the signature fields out of an output region dump.
func DecodeOutputRegion(raw []byte) (*SignatureResult, error) {
	if len(raw) < outputMinLength {
		return nil, fmt.Errorf("%w: output region is %d bytes, need at least %d",
			interfaces.ErrMalformedTag, len(raw), outputMinLength)
	}

	cursor := cryptobyte.String(raw)
	if !cursor.Skip(lastHashOffset) {
		return nil, fmt.Errorf("%w: output region header truncated", interfaces.ErrMalformedTag)
	}

	result := &SignatureResult{}
	if err := readFields(&cursor, []field{{"lastHash", lastHashSize, &result.LastHash}}); err != nil {
		return nil, err
	}
	if !cursor.Skip(lastHashToSigSkip) {
		return nil, fmt.Errorf("%w: output region truncated before signatures", interfaces.ErrMalformedTag)
	}
	if err := readFields(&cursor, []field{
		{"externalSignature", signatureSize, &result.ExternalSignature},
		{"internalSignature", signatureSize, &result.InternalSignature},
	}); err != nil {
		return nil, err
	}
	if !cursor.ReadUint8(&result.Counter) {
		return nil, fmt.Errorf("%w: counter missing", interfaces.ErrMalformedTag)
	}
	return result, nil
}

// Encode lays the result fields out in a region of OutputRegionSize bytes.
// Used by the tag emulator to populate its output pages.
func (r *SignatureResult) Encode() []byte {
	b := cryptobyte.NewBuilder(make([]byte, 0, OutputRegionSize))
	b.AddBytes(make([]byte, lastHashOffset))
	b.AddBytes(fixed(r.LastHash, lastHashSize))
	b.AddBytes(make([]byte, lastHashToSigSkip))
	b.AddBytes(fixed(r.ExternalSignature, signatureSize))
	b.AddBytes(fixed(r.InternalSignature, signatureSize))
	b.AddUint8(r.Counter)
	b.AddBytes(make([]byte, OutputRegionSize-outputMinLength))
	return b.BytesOrPanic()
}

func fixed(data []byte, size int) []byte {
	out := make([]byte, size)
	copy(out, data)
	return out
}

// ExternalSignatureHex returns the r||s signature over the challenge digest as hex.
func (r *SignatureResult) ExternalSignatureHex() string {
	return hex.EncodeToString(r.ExternalSignature)
}

// InternalSignatureHex returns the internal-signature field as hex.
func (r *SignatureResult) InternalSignatureHex() string {
	return hex.EncodeToString(r.InternalSignature)
}

// DecodeDiagnostic returns the diagnostic region as text.
func DecodeDiagnostic(raw []byte) string {
	return string(raw)
}
