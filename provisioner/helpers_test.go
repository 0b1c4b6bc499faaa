package provisioner

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ruteri/silo-provisioner/cryptoutils"
	"github.com/ruteri/silo-provisioner/interfaces"
	"github.com/ruteri/silo-provisioner/registry"
	"github.com/ruteri/silo-provisioner/storage"
	"github.com/ruteri/silo-provisioner/transport/emulator"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// instantClock fires every wait immediately and records its duration.
type instantClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func newInstantClock() *instantClock {
	return &instantClock{now: time.Unix(1700000000, 0)}
}

func (c *instantClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *instantClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *instantClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

type harness struct {
	dir          string
	lifecycle    *storage.Lifecycle
	clock        *instantClock
	orchestrator *Orchestrator
}

func baseConfig(cmd interfaces.CommandCode) Config {
	return Config{
		Command:       cmd,
		HardwareModel: ModelATECC608A,
	}
}

func newHarness(t *testing.T, cfg Config, matcher *registry.Matcher) *harness {
	t.Helper()
	dir := t.TempDir()
	backend, err := storage.NewFileBackend(dir, testLogger())
	require.NoError(t, err)
	return newHarnessWithLifecycle(t, cfg, matcher, dir, storage.NewLifecycle(backend, testLogger()))
}

func newHarnessWithLifecycle(t *testing.T, cfg Config, matcher *registry.Matcher, dir string, lc *storage.Lifecycle) *harness {
	t.Helper()
	clk := newInstantClock()
	o, err := NewOrchestrator(cfg, lc, cryptoutils.NewSignatureVerifier(cryptoutils.P256Verifier{}), matcher, clk, testLogger())
	require.NoError(t, err)
	return &harness{dir: dir, lifecycle: lc, clock: clk, orchestrator: o}
}

func newTag(t *testing.T, opts ...emulator.Option) *emulator.Tag {
	t.Helper()
	tag, err := emulator.NewTag("emu-reader", opts...)
	require.NoError(t, err)
	return tag
}

func (h *harness) process(tag *emulator.Tag) *Result {
	return h.orchestrator.Process(context.Background(), tag)
}

func (h *harness) files(t *testing.T, loc interfaces.Location) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(h.dir, loc.String()))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func (h *harness) recordPath(loc interfaces.Location, hash interfaces.KeyHash) string {
	return filepath.Join(h.dir, loc.String(), hash.String()+".json")
}
