package cryptoutils

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/hex"
	"math/big"
	"strings"
)

const (
	digestHexLen       = 64
	prefixedDigestLen  = digestHexLen + 2
	signatureHexLen    = 128
	publicKeyHexLen    = 128
	markedPublicKeyLen = publicKeyHexLen + 2

	uncompressedMarker = "04"
)

// CurveVerifier checks an ECDSA signature given raw big-endian point coordinates.
type CurveVerifier interface {
	Verify(digest, x, y, r, s []byte) bool
}

// P256Verifier verifies signatures on NIST P-256.
type P256Verifier struct{}

func (P256Verifier) Verify(digest, x, y, r, s []byte) bool {
	curve := elliptic.P256()
	byteLen := (curve.Params().BitSize + 7) / 8
	if len(x) != byteLen || len(y) != byteLen {
		return false
	}

	// ecdh rejects points that are not on the curve
	point := make([]byte, 0, 1+2*byteLen)
	point = append(point, 0x04)
	point = append(point, x...)
	point = append(point, y...)
	if _, err := ecdh.P256().NewPublicKey(point); err != nil {
		return false
	}

	pub := &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}
	return ecdsa.Verify(pub, digest, new(big.Int).SetBytes(r), new(big.Int).SetBytes(s))
}

// SignatureVerifier normalizes hex encodings and delegates to a CurveVerifier.
type SignatureVerifier struct {
	curve CurveVerifier
}

func NewSignatureVerifier(curve CurveVerifier) *SignatureVerifier {
	return &SignatureVerifier{curve: curve}
}

// Verify reports whether signatureHex is a valid signature of digestHex by publicKeyHex.
func (v *SignatureVerifier) Verify(digestHex, publicKeyHex, signatureHex string) bool {
	if len(digestHex) != digestHexLen && len(digestHex) != prefixedDigestLen {
		return false
	}
	if len(signatureHex) != signatureHexLen {
		return false
	}
	if len(publicKeyHex) != publicKeyHexLen && len(publicKeyHex) != markedPublicKeyLen {
		return false
	}

	if len(publicKeyHex) == markedPublicKeyLen {
		if !strings.HasPrefix(publicKeyHex, uncompressedMarker) {
			return false
		}
		publicKeyHex = publicKeyHex[len(uncompressedMarker):]
	}
	if len(digestHex) == prefixedDigestLen {
		if !strings.HasPrefix(digestHex, "0x") && !strings.HasPrefix(digestHex, "0X") {
			return false
		}
		digestHex = digestHex[2:]
	}

	half := publicKeyHexLen / 2
	parts := make([][]byte, 0, 5)
	for _, h := range []string{
		digestHex,
		publicKeyHex[:half], publicKeyHex[half:],
		signatureHex[:signatureHexLen/2], signatureHex[signatureHexLen/2:],
	} {
		b, err := hex.DecodeString(h)
		if err != nil {
			return false
		}
		parts = append(parts, b)
	}

	return v.curve.Verify(parts[0], parts[1], parts[2], parts[3], parts[4])
}
