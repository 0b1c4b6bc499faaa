package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/silo-provisioner/interfaces"
)

// FileBackend implements a record backend using the local file system.
// Records are stored as <base>/<location>/0x<hash>.json.
type FileBackend struct {
	baseDir     string
	prefixes    map[interfaces.Location]string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a new file record backend using the specified base directory.
// It creates the signatures, export and verified subdirectories if they don't exist.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	prefixes := map[interfaces.Location]string{}
	for _, loc := range []interfaces.Location{
		interfaces.SignaturesLocation,
		interfaces.ExportLocation,
		interfaces.VerifiedLocation,
	} {
		dir := filepath.Join(baseDir, loc.String())
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", loc, err)
		}
		prefixes[loc] = loc.String()
	}

	return &FileBackend{
		baseDir:     baseDir,
		prefixes:    prefixes,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Fetch reads a record. Returns ErrRecordNotFound if the file doesn't exist.
func (b *FileBackend) Fetch(ctx context.Context, hash interfaces.KeyHash, loc interfaces.Location) ([]byte, error) {
	filePath := b.getFilePath(hash, loc)

	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, interfaces.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	b.log.Debug("Fetched record from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

func (b *FileBackend) Exists(ctx context.Context, hash interfaces.KeyHash, loc interfaces.Location) (bool, error) {
	_, err := os.Stat(b.getFilePath(hash, loc))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat record: %w", err)
	}
	return true, nil
}

// Put replaces the record through a rename so readers never see a partial file.
func (b *FileBackend) Put(ctx context.Context, hash interfaces.KeyHash, loc interfaces.Location, data []byte) error {
	filePath := b.getFilePath(hash, loc)

	tmp, err := b.writeTemp(filePath, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write file: %w", err)
	}

	b.log.Debug("Stored record in file",
		slog.String("path", filePath),
		slog.String("hash", hash.String()))

	return nil
}

// Create links a fully written temp file into place. The link fails if the
// destination exists, which makes the existence check and write one step.
func (b *FileBackend) Create(ctx context.Context, hash interfaces.KeyHash, loc interfaces.Location, data []byte) (bool, error) {
	filePath := b.getFilePath(hash, loc)

	tmp, err := b.writeTemp(filePath, data)
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, filePath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			b.log.Debug("Record already present", slog.String("path", filePath))
			return false, nil
		}
		return false, fmt.Errorf("failed to create file: %w", err)
	}

	b.log.Debug("Created record file",
		slog.String("path", filePath),
		slog.String("hash", hash.String()))

	return true, nil
}

// Move renames a record between location directories.
func (b *FileBackend) Move(ctx context.Context, hash interfaces.KeyHash, from, to interfaces.Location) error {
	src, dst := b.getFilePath(hash, from), b.getFilePath(hash, to)
	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return interfaces.ErrRecordNotFound
		}
		return fmt.Errorf("failed to move record: %w", err)
	}

	b.log.Debug("Moved record",
		slog.String("from", src),
		slog.String("to", dst))

	return nil
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

func (b *FileBackend) writeTemp(filePath string, data []byte) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(filePath), ".pending-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return f.Name(), nil
}

// getFilePath generates the file path for a key hash and location.
func (b *FileBackend) getFilePath(hash interfaces.KeyHash, loc interfaces.Location) string {
	return filepath.Join(b.baseDir, b.prefixes[loc], hash.String()+".json")
}
