package tagcodec

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/ruteri/silo-provisioner/checksum"
	"github.com/ruteri/silo-provisioner/interfaces"
	"golang.org/x/crypto/cryptobyte"
)

// TagSnapshot is the decoded static region of one tag read.
type TagSnapshot struct {
	HardwareRevision     []byte
	FirmwareNumber       []byte
	SerialNumber         []byte
	PrimaryPublicKey     []byte // signs external data
	SecondaryPublicKey   []byte // signs internal random numbers only
	SmartContractAddress []byte
	NXPI2CSerial         []byte
	NXPMCUSerial         []byte
	SecureElementSerial  []byte
	ConfigZone           []byte
}

type field struct {
	name string
	size int
	dst  *[]byte
}

func (s *TagSnapshot) fields() []field {
	return []field{
		{"hardwareRevision", hardwareRevisionSize, &s.HardwareRevision},
		{"firmwareNumber", firmwareNumberSize, &s.FirmwareNumber},
		{"serialNumber", serialNumberSize, &s.SerialNumber},
		{"primaryPublicKey", publicKeySize, &s.PrimaryPublicKey},
		{"secondaryPublicKey", publicKeySize, &s.SecondaryPublicKey},
		{"smartContractAddress", contractAddressSize, &s.SmartContractAddress},
		{"nxpI2CSerial", nxpI2CSerialSize, &s.NXPI2CSerial},
		{"nxpMCUSerial", nxpMCUSerialSize, &s.NXPMCUSerial},
		{"secureElementSerial", secureElementSerialLen, &s.SecureElementSerial},
		{"configZone", configZoneSize, &s.ConfigZone},
	}
}

// Decode slices the named fields out of a static region dump.
func Decode(raw []byte) (*TagSnapshot, error) {
	if len(raw) < staticMinLength {
		return nil, fmt.Errorf("%w: static region is %d bytes, need at least %d",
			interfaces.ErrMalformedTag, len(raw), staticMinLength)
	}

	cursor := cryptobyte.String(raw)
	if !cursor.Skip(hardwareRevisionOffset) {
		return nil, fmt.Errorf("%w: static region header truncated", interfaces.ErrMalformedTag)
	}

	snapshot := &TagSnapshot{}
	if err := readFields(&cursor, snapshot.fields()); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func readFields(cursor *cryptobyte.String, fields []field) error {
	for _, f := range fields {
		var out []byte
		if !cursor.ReadBytes(&out, f.size) {
			return fmt.Errorf("%w: field %s needs %d bytes, %d left",
				interfaces.ErrMalformedTag, f.name, f.size, len(*cursor))
		}
		*f.dst = bytes.Clone(out)
	}
	return nil
}

// Encode lays the snapshot fields back out at their offsets in a region of
// TagCapacity bytes. Bytes outside declared fields are zero.
func (s *TagSnapshot) Encode() []byte {
	b := cryptobyte.NewBuilder(make([]byte, 0, TagCapacity))
	b.AddBytes(make([]byte, hardwareRevisionOffset))
	for _, f := range s.fields() {
		padded := make([]byte, f.size)
		copy(padded, *f.dst)
		b.AddBytes(padded)
	}
	b.AddBytes(make([]byte, TagCapacity-staticMinLength))
	return b.BytesOrPanic()
}

// PrimaryPublicKeyHex returns the raw X||Y primary public key as 128 hex characters.
func (s *TagSnapshot) PrimaryPublicKeyHex() string {
	return hex.EncodeToString(s.PrimaryPublicKey)
}

// SecondaryPublicKeyHex returns the raw X||Y secondary public key as hex.
func (s *TagSnapshot) SecondaryPublicKeyHex() string {
	return hex.EncodeToString(s.SecondaryPublicKey)
}

// SecureElementSerialHex returns the secure element serial as hex.
func (s *TagSnapshot) SecureElementSerialHex() string {
	return hex.EncodeToString(s.SecureElementSerial)
}

// ConfigZoneHex returns the secure element configuration zone as hex.
func (s *TagSnapshot) ConfigZoneHex() string {
	return hex.EncodeToString(s.ConfigZone)
}

// PrimaryKeyHash returns the record identity of the tag.
func (s *TagSnapshot) PrimaryKeyHash() interfaces.KeyHash {
	return interfaces.KeyHash(checksum.SHA256(s.PrimaryPublicKey))
}
