package provisioner

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/silo-provisioner/checksum"
	"github.com/ruteri/silo-provisioner/interfaces"
	"github.com/ruteri/silo-provisioner/tagcodec"
)

// selectVerificationKey picks the key the external signature is checked against.
// Commands that expose the provisioning key store it in the internal-signature
// field. An override key always wins.
func selectVerificationKey(cfg *Config, snapshot *tagcodec.TagSnapshot, result *tagcodec.SignatureResult) string {
	if cfg.OverrideKey != "" {
		return cfg.OverrideKey
	}
	if cfg.Command.ExposesInternalKey() {
		return result.InternalSignatureHex()
	}
	return snapshot.PrimaryPublicKeyHex()
}

func prefixedHash(parts ...[]byte) string {
	return "0x" + checksum.SHA256Hex(parts...)
}

// hexKeyBytes decodes a verification key for hashing, ignoring a 04 marker.
func hexKeyBytes(key string) []byte {
	if len(key) == 130 {
		key = key[2:]
	}
	b, err := hex.DecodeString(key)
	if err != nil {
		return nil
	}
	return b
}

// configZoneFingerprint drops the serial bytes and the incrementing I2C byte
// from the config zone hex so identical chips hash alike.
func configZoneFingerprint(configHex string) string {
	if len(configHex) < 256 {
		return configHex
	}
	return configHex[8:16] + configHex[26:28] + configHex[30:256]
}

// buildRecord assembles the full attestation document. SaveSignature stores
// only its signature fields.
func buildRecord(cfg *Config, snapshot *tagcodec.TagSnapshot, req *tagcodec.ProvisioningRequest, result *tagcodec.SignatureResult, signingKey string) *interfaces.AttestationRecord {
	hash := snapshot.PrimaryKeyHash()
	record := &interfaces.AttestationRecord{
		Hash:                 hash,
		Command:              cfg.Command,
		PrimaryPublicKey:     interfaces.NewKeyPair(snapshot.PrimaryPublicKeyHex()),
		PrimaryPublicKeyHash: hash.String(),
		Digest:               hexutil.Encode(req.Digest[:]),
		Signature:            "0x" + result.ExternalSignatureHex(),
		SigningKey:           signingKey,
	}

	secondary := interfaces.NewKeyPair(snapshot.SecondaryPublicKeyHex())
	record.SecondaryPublicKey = &secondary
	record.SecondaryPublicKeyHash = prefixedHash(snapshot.SecondaryPublicKey)

	if cfg.Command.ExposesInternalKey() {
		tertiary := interfaces.NewKeyPair(signingKey)
		record.TertiaryPublicKey = &tertiary
		record.TertiaryPublicKeyHash = prefixedHash(hexKeyBytes(signingKey))
	}

	record.HardwareManufacturer = prefixedHash([]byte(HardwareManufacturer))
	record.HardwareModel = prefixedHash([]byte(cfg.HardwareModel))
	// Serial and config hashes are taken over the hex text, not the raw bytes.
	record.HardwareSerial = prefixedHash([]byte(snapshot.SecureElementSerialHex()))
	record.HardwareConfig = prefixedHash([]byte(configZoneFingerprint(snapshot.ConfigZoneHex())))
	return record
}

// TestMatchRecord is the placeholder signature record written by the match command.
func TestMatchRecord(hash interfaces.KeyHash) *interfaces.AttestationRecord {
	return &interfaces.AttestationRecord{
		Hash:                 hash,
		PrimaryPublicKey:     interfaces.NewKeyPair("test-primaryPublicKey"),
		PrimaryPublicKeyHash: hash.String(),
		Digest:               "0xtest-combinedHash",
		Signature:            "0xtest-externalSignature",
		SigningKey:           "test-verificationKey",
	}
}
