// Package checksum provides the integrity primitives of the tag wire format:
// the CRC-16/CCITT-FALSE frame checksum and SHA-256 digests.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/sigurn/crc16"
)

// Poly 0x1021, init 0xFFFF, no reflection, no final xor.
var ccittTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// CRC16 computes the CCITT checksum the tag firmware expects over a write record body.
func CRC16(data []byte) uint16 {
	return crc16.Checksum(data, ccittTable)
}

// SHA256 returns the SHA-256 digest of the concatenation of parts.
func SHA256(parts ...[]byte) [32]byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// SHA256Hex returns the lowercase hex SHA-256 of the concatenation of parts,
// without prefix.
func SHA256Hex(parts ...[]byte) string {
	sum := SHA256(parts...)
	return hex.EncodeToString(sum[:])
}
