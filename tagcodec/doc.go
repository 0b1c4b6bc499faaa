// Package tagcodec implements the fixed-offset memory layout of a SiLo tag and
// the framed challenge record written to it.
//
// # Memory Map
//
// Tag memory is addressed in 4-byte pages:
//
//	0x00..0x62  static region (396 bytes): identity, public keys, serials, config zone
//	0x64..0xA4  output region (260 bytes): last hash, signatures, counter
//	0xAC..0xAE  diagnostic text (12 bytes), "Tag written\x00" on success
//	0xB0        challenge record write address
//	0xCB        confirmation page
//	0xE8        configuration page
//
// # Challenge Record
//
// The record is reproduced bit-for-bit; the tag performs no tolerant parsing:
//
//	55 00 63 | cmd (1) | address (20) + zero pad (12) | block (32) | digest (32) | crc16 BE (2) | FE 00
//
// The checksum covers cmd through digest and is recomputed on every encode. The
// digest is SHA-256 over the unpadded address followed by the block reference.
//
// Decoding reads named fields off a cryptobyte cursor and fails with
// interfaces.ErrMalformedTag instead of truncating.
package tagcodec
