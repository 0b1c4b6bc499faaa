package storage

import (
	"bytes"
	"context"
	"log/slog"
	"sync"

	"github.com/ruteri/silo-provisioner/interfaces"
)

type memoryKey struct {
	hash interfaces.KeyHash
	loc  interfaces.Location
}

// MemoryBackend keeps records in a map. Used for dry runs and tests.
type MemoryBackend struct {
	mu      sync.Mutex
	records map[memoryKey][]byte
	log     *slog.Logger
}

func NewMemoryBackend(log *slog.Logger) *MemoryBackend {
	return &MemoryBackend{
		records: make(map[memoryKey][]byte),
		log:     log,
	}
}

func (b *MemoryBackend) Fetch(ctx context.Context, hash interfaces.KeyHash, loc interfaces.Location) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, ok := b.records[memoryKey{hash, loc}]
	if !ok {
		return nil, interfaces.ErrRecordNotFound
	}
	return bytes.Clone(data), nil
}

func (b *MemoryBackend) Exists(ctx context.Context, hash interfaces.KeyHash, loc interfaces.Location) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.records[memoryKey{hash, loc}]
	return ok, nil
}

func (b *MemoryBackend) Put(ctx context.Context, hash interfaces.KeyHash, loc interfaces.Location, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records[memoryKey{hash, loc}] = bytes.Clone(data)
	b.log.Debug("Stored record in memory", slog.String("hash", hash.String()), slog.String("location", loc.String()))
	return nil
}

func (b *MemoryBackend) Create(ctx context.Context, hash interfaces.KeyHash, loc interfaces.Location, data []byte) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := memoryKey{hash, loc}
	if _, ok := b.records[key]; ok {
		return false, nil
	}
	b.records[key] = bytes.Clone(data)
	return true, nil
}

func (b *MemoryBackend) Move(ctx context.Context, hash interfaces.KeyHash, from, to interfaces.Location) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, ok := b.records[memoryKey{hash, from}]
	if !ok {
		return interfaces.ErrRecordNotFound
	}
	delete(b.records, memoryKey{hash, from})
	b.records[memoryKey{hash, to}] = data
	return nil
}

func (b *MemoryBackend) LocationURI() string {
	return "memory://"
}
