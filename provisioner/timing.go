package provisioner

import "time"

// Fixed waits between tag operations. The secure element answers
// asynchronously; shortening these breaks real hardware.
const (
	WakeDelay       = 200 * time.Millisecond
	SettleDelay     = 2500 * time.Millisecond
	DiagnosticDelay = 200 * time.Millisecond
	PersistDelay    = 100 * time.Millisecond
)

// Clock is the subset of github.com/benbjohnson/clock.Clock the workflow needs.
type Clock interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
}
