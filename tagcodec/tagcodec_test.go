package tagcodec

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/silo-provisioner/checksum"
	"github.com/ruteri/silo-provisioner/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialRegion(n int) []byte {
	raw := make([]byte, n)
	for i := range raw {
		raw[i] = byte(i)
	}
	return raw
}

func TestDecodeStaticRegion(t *testing.T) {
	raw := sequentialRegion(TagCapacity)

	snapshot, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, raw[70:74], snapshot.HardwareRevision)
	assert.Equal(t, raw[74:78], snapshot.FirmwareNumber)
	assert.Equal(t, raw[78:86], snapshot.SerialNumber)
	assert.Equal(t, raw[86:150], snapshot.PrimaryPublicKey)
	assert.Equal(t, raw[150:214], snapshot.SecondaryPublicKey)
	assert.Equal(t, raw[214:234], snapshot.SmartContractAddress)
	assert.Equal(t, raw[234:241], snapshot.NXPI2CSerial)
	assert.Equal(t, raw[241:257], snapshot.NXPMCUSerial)
	assert.Equal(t, raw[257:266], snapshot.SecureElementSerial)
	assert.Equal(t, raw[266:394], snapshot.ConfigZone)

	assert.Equal(t, interfaces.KeyHash(checksum.SHA256(raw[86:150])), snapshot.PrimaryKeyHash())

	// fields are copies
	raw[86] = 0xFF
	assert.Equal(t, byte(86), snapshot.PrimaryPublicKey[0])
}

func TestDecodeMinimumLength(t *testing.T) {
	_, err := Decode(sequentialRegion(394))
	require.NoError(t, err)

	_, err = Decode(sequentialRegion(393))
	require.ErrorIs(t, err, interfaces.ErrMalformedTag)

	_, err = Decode(nil)
	require.ErrorIs(t, err, interfaces.ErrMalformedTag)
}

func TestSnapshotEncodeRoundTrip(t *testing.T) {
	raw := sequentialRegion(TagCapacity)
	snapshot, err := Decode(raw)
	require.NoError(t, err)

	encoded := snapshot.Encode()
	require.Len(t, encoded, TagCapacity)
	assert.Equal(t, raw[70:394], encoded[70:394])

	again, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, snapshot, again)
}

func TestDecodeOutputRegion(t *testing.T) {
	raw := sequentialRegion(OutputRegionSize)

	result, err := DecodeOutputRegion(raw)
	require.NoError(t, err)
	assert.Equal(t, raw[65:98], result.LastHash)
	assert.Equal(t, raw[129:193], result.ExternalSignature)
	assert.Equal(t, raw[193:257], result.InternalSignature)
	assert.Equal(t, raw[257], result.Counter)

	_, err = DecodeOutputRegion(raw[:257])
	require.ErrorIs(t, err, interfaces.ErrMalformedTag)

	_, err = DecodeOutputRegion(raw[:258])
	require.NoError(t, err)
}

func TestOutputRegionEncode(t *testing.T) {
	result := &SignatureResult{
		LastHash:          bytes.Repeat([]byte{0x01}, 33),
		ExternalSignature: bytes.Repeat([]byte{0x02}, 64),
		InternalSignature: bytes.Repeat([]byte{0x03}, 64),
		Counter:           7,
	}
	encoded := result.Encode()
	require.Len(t, encoded, OutputRegionSize)

	decoded, err := DecodeOutputRegion(encoded)
	require.NoError(t, err)
	assert.Equal(t, result, decoded)
}

func TestEncodeWriteRecordLayout(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	var block [32]byte
	for i := range block {
		block[i] = 0x22
	}

	req, err := NewRequest(interfaces.CommandSign, addr, &block)
	require.NoError(t, err)
	assert.Equal(t, checksum.SHA256(addr.Bytes(), block[:]), req.Digest)

	record := req.WriteRecord()
	require.Len(t, record, 104)

	assert.Equal(t, []byte{0x55, 0x00, 0x63}, record[0:3])
	assert.Equal(t, byte(0x00), record[3])
	assert.Equal(t, addr.Bytes(), record[4:24])
	assert.Equal(t, make([]byte, 12), record[24:36])
	assert.Equal(t, block[:], record[36:68])
	assert.Equal(t, req.Digest[:], record[68:100])
	assert.Equal(t, checksum.CRC16(record[3:100]), binary.BigEndian.Uint16(record[100:102]))
	assert.Equal(t, []byte{0xFE, 0x00}, record[102:104])
}

func TestEncodeWriteRecordChecksumTracksPayload(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	var block [32]byte

	first := EncodeWriteRecord(interfaces.CommandSign, addr, block, ChallengeDigest(addr, block))
	block[0] = 1
	second := EncodeWriteRecord(interfaces.CommandSign, addr, block, ChallengeDigest(addr, block))
	assert.NotEqual(t, first[100:102], second[100:102])

	mint := EncodeWriteRecord(interfaces.CommandMint, addr, block, ChallengeDigest(addr, block))
	assert.Equal(t, byte(0x55), mint[3])
	assert.NotEqual(t, second[100:102], mint[100:102])
}

func TestNewRequestRandomBlock(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")

	a, err := NewRequest(interfaces.CommandExport, addr, nil)
	require.NoError(t, err)
	b, err := NewRequest(interfaces.CommandExport, addr, nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.Block, b.Block)
	assert.Equal(t, ChallengeDigest(addr, a.Block), a.Digest)
}

func TestDecodeWriteRecord(t *testing.T) {
	addr := common.HexToAddress("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd")
	var block [32]byte
	block[31] = 9
	req, err := NewRequest(interfaces.CommandMint, addr, &block)
	require.NoError(t, err)

	decoded, err := DecodeWriteRecord(req.WriteRecord())
	require.NoError(t, err)
	assert.Equal(t, req, decoded)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"short", func(r []byte) []byte { return r[:103] }},
		{"header", func(r []byte) []byte { r[0] = 0x54; return r }},
		{"trailer", func(r []byte) []byte { r[103] = 0x01; return r }},
		{"checksum", func(r []byte) []byte { r[50] ^= 0xFF; return r }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeWriteRecord(tt.mutate(req.WriteRecord()))
			require.ErrorIs(t, err, interfaces.ErrMalformedTag)
		})
	}
}

func TestDecodeDiagnostic(t *testing.T) {
	assert.Equal(t, SuccessMarker, DecodeDiagnostic([]byte("Tag written\x00")))
	assert.NotEqual(t, SuccessMarker, DecodeDiagnostic([]byte("Bad CRC\x00\x00\x00\x00\x00")))
}
