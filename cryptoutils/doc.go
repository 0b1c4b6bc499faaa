// Package cryptoutils verifies P-256 signatures produced by a tag's secure element.
//
// Tags report keys and signatures as hex text. SignatureVerifier normalizes
// those encodings before handing coordinates to a CurveVerifier:
//
//   - digest: 64 hex characters, optionally 0x-prefixed
//   - public key: 128 hex characters X||Y, optionally prefixed with the 04 uncompressed marker
//   - signature: exactly 128 hex characters R||S
//
// Any other shape is reported as a failed verification, never as an error.
//
// # Usage Example
//
//	verifier := cryptoutils.NewSignatureVerifier(cryptoutils.P256Verifier{})
//	ok := verifier.Verify("0x"+digestHex, publicKeyHex, signatureHex)
package cryptoutils
