package registry

import (
	"log/slog"

	"github.com/ruteri/silo-provisioner/interfaces"
)

// Matcher renders registry matches on a Display.
type Matcher struct {
	registry *Registry
	display  interfaces.Display
	log      *slog.Logger
}

func NewMatcher(registry *Registry, display interfaces.Display, log *slog.Logger) *Matcher {
	if registry == nil {
		registry = Empty()
	}
	return &Matcher{registry: registry, display: display, log: log}
}

// Render shows the matched entry and reports whether one was found. Display
// failures are logged and do not change the result.
func (m *Matcher) Render(hash interfaces.KeyHash) bool {
	entry, ok := m.registry.Find(hash)
	if !ok {
		m.log.Info("no device found.", slog.String("hash", hash.String()))
		return false
	}

	if entry.Name != "" {
		m.display.ShowName(entry.Name)
	}
	if entry.POAP != "" {
		if err := m.display.ShowPOAP(entry.POAP); err != nil {
			m.log.Warn("Failed to render POAP", slog.String("hash", hash.String()), "err", err)
		}
	}
	if entry.Image != "" {
		if err := m.display.OpenImage(entry.Image); err != nil {
			m.log.Warn("Failed to open device image", slog.String("image", entry.Image), "err", err)
		}
	}
	return true
}
