package tagcodec

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/silo-provisioner/checksum"
	"github.com/ruteri/silo-provisioner/interfaces"
	"golang.org/x/crypto/cryptobyte"
)

var (
	writeRecordHeader  = []byte{0x55, 0x00, 0x63}
	writeRecordTrailer = []byte{0xFE, 0x00}
)

const (
	paddedAddressSize = 32
	blockSize         = 32
	digestSize        = 32

	// WriteRecordSize is the framed challenge length.
	WriteRecordSize = 3 + 1 + paddedAddressSize + blockSize + digestSize + 2 + 2
)

// ProvisioningRequest is one challenge prepared for a tag.
type ProvisioningRequest struct {
	Command interfaces.CommandCode
	Address common.Address
	Block   [32]byte
	Digest  [32]byte
}

// NewRequest computes the digest of address||block. A nil block is replaced
// by 32 random bytes.
func NewRequest(cmd interfaces.CommandCode, addr common.Address, block *[32]byte) (*ProvisioningRequest, error) {
	req := &ProvisioningRequest{Command: cmd, Address: addr}
	if block != nil {
		req.Block = *block
	} else if _, err := rand.Read(req.Block[:]); err != nil {
		return nil, fmt.Errorf("generating block reference: %w", err)
	}
	req.Digest = ChallengeDigest(addr, req.Block)
	return req, nil
}

// ChallengeDigest is SHA-256 over the unpadded address followed by the block.
func ChallengeDigest(addr common.Address, block [32]byte) [32]byte {
	return checksum.SHA256(addr.Bytes(), block[:])
}

// WriteRecord frames the request for the tag.
func (r *ProvisioningRequest) WriteRecord() []byte {
	return EncodeWriteRecord(r.Command, r.Address, r.Block, r.Digest)
}

// EncodeWriteRecord builds the 104-byte challenge record. The checksum is
// recomputed from the payload every time.
func EncodeWriteRecord(cmd interfaces.CommandCode, addr common.Address, block, digest [32]byte) []byte {
	payload := cryptobyte.NewBuilder(make([]byte, 0, 1+paddedAddressSize+blockSize+digestSize))
	payload.AddUint8(byte(cmd))
	payload.AddBytes(common.RightPadBytes(addr.Bytes(), paddedAddressSize))
	payload.AddBytes(block[:])
	payload.AddBytes(digest[:])
	body := payload.BytesOrPanic()

	b := cryptobyte.NewBuilder(make([]byte, 0, WriteRecordSize))
	b.AddBytes(writeRecordHeader)
	b.AddBytes(body)
	b.AddUint16(checksum.CRC16(body))
	b.AddBytes(writeRecordTrailer)
	return b.BytesOrPanic()
}

// DecodeWriteRecord parses a framed challenge and checks its header, checksum
// and trailer.
func DecodeWriteRecord(record []byte) (*ProvisioningRequest, error) {
	if len(record) != WriteRecordSize {
		return nil, fmt.Errorf("%w: write record is %d bytes, want %d", interfaces.ErrMalformedTag, len(record), WriteRecordSize)
	}
	if !bytes.Equal(record[:len(writeRecordHeader)], writeRecordHeader) {
		return nil, fmt.Errorf("%w: bad write record header %x", interfaces.ErrMalformedTag, record[:len(writeRecordHeader)])
	}
	if !bytes.Equal(record[WriteRecordSize-len(writeRecordTrailer):], writeRecordTrailer) {
		return nil, fmt.Errorf("%w: bad write record trailer", interfaces.ErrMalformedTag)
	}

	body := record[len(writeRecordHeader) : WriteRecordSize-len(writeRecordTrailer)-2]
	crc := binary.BigEndian.Uint16(record[WriteRecordSize-len(writeRecordTrailer)-2:])
	if got := checksum.CRC16(body); got != crc {
		return nil, fmt.Errorf("%w: write record checksum %04x, computed %04x", interfaces.ErrMalformedTag, crc, got)
	}

	cursor := cryptobyte.String(body)
	var (
		cmd     uint8
		padded  []byte
		block   []byte
		digest  []byte
		request ProvisioningRequest
	)
	if !cursor.ReadUint8(&cmd) ||
		!cursor.ReadBytes(&padded, paddedAddressSize) ||
		!cursor.ReadBytes(&block, blockSize) ||
		!cursor.ReadBytes(&digest, digestSize) {
		return nil, fmt.Errorf("%w: write record body truncated", interfaces.ErrMalformedTag)
	}
	request.Command = interfaces.CommandCode(cmd)
	request.Address = common.BytesToAddress(padded[:common.AddressLength])
	copy(request.Block[:], block)
	copy(request.Digest[:], digest)
	return &request, nil
}
