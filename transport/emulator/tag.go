package emulator

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/ruteri/silo-provisioner/cryptoutils"
	"github.com/ruteri/silo-provisioner/interfaces"
	"github.com/ruteri/silo-provisioner/tagcodec"
)

const (
	memoryPages = 256
	memorySize  = memoryPages * tagcodec.PageSize

	diagnosticBadRecord = "Bad record\x00\x00"
)

// Tag is an emulated SiLo tag. It is safe for concurrent use.
type Tag struct {
	mu     sync.Mutex
	name   string
	memory [memorySize]byte

	primary      *ecdsa.PrivateKey
	secondary    *ecdsa.PrivateKey
	provisioning *ecdsa.PrivateKey
	counter      byte

	pendingWrite []byte
	readFaults   map[byte]error
	shortReads   map[byte]bool
	writeFault   error
	corruptSig   bool
	diagnostic   string

	reads  int
	writes int
	last   *tagcodec.ProvisioningRequest
}

type Option func(*Tag)

// WithReadFault makes reads of page fail with err.
func WithReadFault(page byte, err error) Option {
	return func(t *Tag) { t.readFaults[page] = err }
}

// WithShortRead makes reads of page return one byte less than asked.
func WithShortRead(page byte) Option {
	return func(t *Tag) { t.shortReads[page] = true }
}

// WithWriteFault makes every write fail with err.
func WithWriteFault(err error) Option {
	return func(t *Tag) { t.writeFault = err }
}

// WithCorruptSignature flips a bit of every external signature.
func WithCorruptSignature() Option {
	return func(t *Tag) { t.corruptSig = true }
}

// WithDiagnostic replaces the diagnostic text written after a challenge.
func WithDiagnostic(text string) Option {
	return func(t *Tag) { t.diagnostic = text }
}

// NewTag creates a tag presented under reader name with fresh keys and serials.
func NewTag(name string, opts ...Option) (*Tag, error) {
	t := &Tag{
		name:       name,
		readFaults: map[byte]error{},
		shortReads: map[byte]bool{},
		diagnostic: tagcodec.SuccessMarker,
	}
	for _, opt := range opts {
		opt(t)
	}

	var err error
	for _, key := range []**ecdsa.PrivateKey{&t.primary, &t.secondary, &t.provisioning} {
		if *key, err = cryptoutils.GenerateP256Key(); err != nil {
			return nil, err
		}
	}

	snapshot := &tagcodec.TagSnapshot{
		HardwareRevision:   []byte{0x00, 0x00, 0x00, 0x01},
		FirmwareNumber:     []byte{0x00, 0x00, 0x00, 0x01},
		PrimaryPublicKey:   cryptoutils.RawPublicKey(&t.primary.PublicKey),
		SecondaryPublicKey: cryptoutils.RawPublicKey(&t.secondary.PublicKey),
	}
	for _, f := range []struct {
		dst  *[]byte
		size int
	}{
		{&snapshot.SerialNumber, 8},
		{&snapshot.SmartContractAddress, 20},
		{&snapshot.NXPI2CSerial, 7},
		{&snapshot.NXPMCUSerial, 16},
		{&snapshot.SecureElementSerial, 9},
		{&snapshot.ConfigZone, 128},
	} {
		*f.dst = make([]byte, f.size)
		if _, err := rand.Read(*f.dst); err != nil {
			return nil, err
		}
	}
	copy(t.memory[:], snapshot.Encode())
	copy(t.memory[int(tagcodec.ConfigPage)*tagcodec.PageSize:], []byte{0x00, 0x00, 0x00, 0xBD})
	return t, nil
}

func (t *Tag) Name() string {
	return t.name
}

// ReadPage returns length bytes of memory starting at page.
func (t *Tag) ReadPage(ctx context.Context, page byte, length int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.reads++
	if err := t.readFaults[page]; err != nil {
		return nil, err
	}

	start := int(page) * tagcodec.PageSize
	end := min(start+length, memorySize)
	if t.shortReads[page] {
		end--
	}
	out := make([]byte, end-start)
	copy(out, t.memory[start:end])
	return out, nil
}

// WritePage stores data across consecutive pages. A challenge record written at
// page 0xB0 is processed once it is complete; it may arrive in page-sized chunks.
func (t *Tag) WritePage(ctx context.Context, page byte, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.writes++
	if t.writeFault != nil {
		return t.writeFault
	}

	start := int(page) * tagcodec.PageSize
	if start+len(data) > memorySize {
		return fmt.Errorf("write of %d bytes at page %#02x overflows memory", len(data), page)
	}
	copy(t.memory[start:], data)

	recordStart := int(tagcodec.WriteRecordPage) * tagcodec.PageSize
	if start < recordStart || start >= recordStart+tagcodec.WriteRecordSize {
		return nil
	}
	if start == recordStart {
		t.pendingWrite = t.pendingWrite[:0]
	}
	t.pendingWrite = append(t.pendingWrite, data...)
	if len(t.pendingWrite) >= tagcodec.WriteRecordSize {
		t.processChallenge(t.pendingWrite[:tagcodec.WriteRecordSize])
		t.pendingWrite = nil
	}
	return nil
}

func (t *Tag) processChallenge(record []byte) {
	req, err := tagcodec.DecodeWriteRecord(record)
	if err != nil {
		t.writeDiagnostic(diagnosticBadRecord)
		return
	}
	t.last = req

	signer := t.primary
	var internal []byte
	switch {
	case req.Command == interfaces.CommandMint:
		provisioning, err := cryptoutils.GenerateP256Key()
		if err != nil {
			t.writeDiagnostic(diagnosticBadRecord)
			return
		}
		t.provisioning = provisioning
		fallthrough
	case req.Command.ExposesInternalKey():
		signer = t.provisioning
		internal = cryptoutils.RawPublicKey(&t.provisioning.PublicKey)
	default:
		var nonce [32]byte
		rand.Read(nonce[:])
		internal, err = cryptoutils.SignP256(t.secondary, nonce[:])
		if err != nil {
			t.writeDiagnostic(diagnosticBadRecord)
			return
		}
	}

	sig, err := cryptoutils.SignP256(signer, req.Digest[:])
	if err != nil {
		t.writeDiagnostic(diagnosticBadRecord)
		return
	}
	if t.corruptSig {
		sig[len(sig)-1] ^= 0x01
	}

	t.counter++
	result := &tagcodec.SignatureResult{
		LastHash:          append([]byte{byte(req.Command)}, req.Digest[:]...),
		ExternalSignature: sig,
		InternalSignature: internal,
		Counter:           t.counter,
	}
	copy(t.memory[int(tagcodec.OutputFirstPage)*tagcodec.PageSize:], result.Encode())
	t.writeDiagnostic(t.diagnostic)
}

func (t *Tag) writeDiagnostic(text string) {
	region := make([]byte, tagcodec.DiagnosticSize)
	copy(region, text)
	copy(t.memory[int(tagcodec.DiagnosticFirstPage)*tagcodec.PageSize:], region)
}

// PrimaryPublicKey returns the raw X||Y primary public key.
func (t *Tag) PrimaryPublicKey() []byte {
	return cryptoutils.RawPublicKey(&t.primary.PublicKey)
}

// ProvisioningPublicKey returns the raw X||Y key exposed by commands 0x55 and 0x56.
func (t *Tag) ProvisioningPublicKey() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cryptoutils.RawPublicKey(&t.provisioning.PublicKey)
}

// LastRequest returns the most recent challenge the tag accepted.
func (t *Tag) LastRequest() *tagcodec.ProvisioningRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Stats returns the number of read and write calls served.
func (t *Tag) Stats() (reads, writes int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reads, t.writes
}
