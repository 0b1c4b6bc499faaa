package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/ruteri/silo-provisioner/interfaces"
	"github.com/tidwall/jsonc"
)

// Registry is an immutable, ordered set of device entries.
type Registry struct {
	entries []interfaces.DeviceRegistryEntry
	index   map[interfaces.KeyHash]int
}

// Empty returns a registry that matches nothing.
func Empty() *Registry {
	return &Registry{index: map[interfaces.KeyHash]int{}}
}

// Parse decodes JSON or JSONC registry content. Entries whose hash does not
// parse are kept in order but never match; the first entry wins for duplicate hashes.
func Parse(data []byte, log *slog.Logger) (*Registry, error) {
	var entries []interfaces.DeviceRegistryEntry
	if err := json.Unmarshal(jsonc.ToJSON(data), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrRegistryLoad, err)
	}

	r := &Registry{entries: entries, index: make(map[interfaces.KeyHash]int, len(entries))}
	for i, entry := range entries {
		hash, err := interfaces.NewKeyHashFromHex(entry.PrimaryPublicKeyHash)
		if err != nil {
			log.Warn("Skipping registry entry with invalid hash",
				slog.Int("index", i),
				slog.String("primaryPublicKeyHash", entry.PrimaryPublicKeyHash),
				"err", err)
			continue
		}
		if _, dup := r.index[hash]; !dup {
			r.index[hash] = i
		}
	}
	return r, nil
}

// Load reads a registry file. On failure it returns an empty registry together
// with an ErrRegistryLoad error the caller should log and continue past.
func Load(path string, log *slog.Logger) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Empty(), fmt.Errorf("%w: %v", interfaces.ErrRegistryLoad, err)
	}

	r, err := Parse(data, log)
	if err != nil {
		return Empty(), fmt.Errorf("%s: %w", path, err)
	}

	log.Debug("Loaded device registry", slog.String("path", path), slog.Int("entries", len(r.entries)))
	return r, nil
}

// Find looks up the entry for a primary-key hash.
func (r *Registry) Find(hash interfaces.KeyHash) (interfaces.DeviceRegistryEntry, bool) {
	i, ok := r.index[hash]
	if !ok {
		return interfaces.DeviceRegistryEntry{}, false
	}
	return r.entries[i], true
}

// Len returns the number of entries, including those that can never match.
func (r *Registry) Len() int {
	return len(r.entries)
}
