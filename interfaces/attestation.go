package interfaces

// KeyPair is a public key split into its 0x-prefixed X and Y coordinate strings.
type KeyPair [2]string

// NewKeyPair splits a raw 128-character hex public key into coordinates by
// taking its first and last 64 characters.
func NewKeyPair(publicKeyHex string) KeyPair {
	if len(publicKeyHex) < 64 {
		return KeyPair{"0x" + publicKeyHex, "0x" + publicKeyHex}
	}
	return KeyPair{
		"0x" + publicKeyHex[:64],
		"0x" + publicKeyHex[len(publicKeyHex)-64:],
	}
}

// AttestationRecord is the persisted proof that a tag signed a challenge.
// Hash and Command are not serialized; Hash names the record file.
type AttestationRecord struct {
	Hash    KeyHash     `json:"-"`
	Command CommandCode `json:"-"`

	PrimaryPublicKey     KeyPair `json:"primaryPublicKey"`
	PrimaryPublicKeyHash string  `json:"primaryPublicKeyHash"`
	Digest               string  `json:"digest"`
	Signature            string  `json:"signature"`
	SigningKey           string  `json:"signingKey"`

	SecondaryPublicKey     *KeyPair `json:"secondaryPublicKey,omitempty"`
	SecondaryPublicKeyHash string   `json:"secondaryPublicKeyHash,omitempty"`
	TertiaryPublicKey      *KeyPair `json:"tertiaryPublicKey,omitempty"`
	TertiaryPublicKeyHash  string   `json:"tertiaryPublicKeyHash,omitempty"`

	HardwareManufacturer string `json:"hardwareManufacturer,omitempty"`
	HardwareModel        string `json:"hardwareModel,omitempty"`
	HardwareSerial       string `json:"hardwareSerial,omitempty"`
	HardwareConfig       string `json:"hardwareConfig,omitempty"`
}
