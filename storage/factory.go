package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ruteri/silo-provisioner/interfaces"
)

// BackendFor creates a record backend from a location URI or a plain directory path.
//
// Supported schemes:
//   - file:// - Local filesystem storage
//   - memory:// - Process-local storage, lost on exit
func BackendFor(location string, log *slog.Logger) (interfaces.RecordBackend, error) {
	if !strings.Contains(location, "://") {
		return NewFileBackend(location, log)
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("invalid location URI %q: %w", location, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		path := u.Path
		if u.Host != "" {
			path = u.Host + path
		}
		if path == "" {
			return nil, fmt.Errorf("file location %q has no path", location)
		}
		return NewFileBackend(path, log)
	case "memory":
		return NewMemoryBackend(log), nil
	default:
		return nil, fmt.Errorf("unsupported backend scheme: %s", u.Scheme)
	}
}
