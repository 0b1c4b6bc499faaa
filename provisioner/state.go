package provisioner

import (
	"time"

	"github.com/ruteri/silo-provisioner/interfaces"
	"github.com/ruteri/silo-provisioner/storage"
	"github.com/ruteri/silo-provisioner/tagcodec"
)

type State int

const (
	StateIdle State = iota
	StateTagRead
	StateRequestBuilt
	StateWritten
	StateAwaitingResult
	StateResultRead
	StateVerifying
	StateDiagnosticRead
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTagRead:
		return "tag_read"
	case StateRequestBuilt:
		return "request_built"
	case StateWritten:
		return "written"
	case StateAwaitingResult:
		return "awaiting_result"
	case StateResultRead:
		return "result_read"
	case StateVerifying:
		return "verifying"
	case StateDiagnosticRead:
		return "diagnostic_read"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

type Resolution int

const (
	ResolutionSuccess Resolution = iota
	ResolutionRefused
	ResolutionError
)

func (r Resolution) String() string {
	switch r {
	case ResolutionSuccess:
		return "success"
	case ResolutionRefused:
		return "refused"
	case ResolutionError:
		return "error"
	default:
		return "unknown"
	}
}

// Result describes one resolved workflow.
type Result struct {
	WorkflowID string
	Reader     string
	Resolution Resolution
	// FailedIn is the last state reached before an error resolution.
	FailedIn State
	Err      error

	KeyHash    interfaces.KeyHash
	Snapshot   *tagcodec.TagSnapshot
	Request    *tagcodec.ProvisioningRequest
	Signature  *tagcodec.SignatureResult
	SigningKey string
	Verified   bool
	Diagnostic string
	Matched    bool
	Outcomes   []storage.Outcome

	Started  time.Time
	Duration time.Duration
}
