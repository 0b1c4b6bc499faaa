// Package provisioner drives one tag through the challenge workflow and
// listens for tags on a transport.
//
// Orchestrator.Process is a synchronous state machine:
//
//	Idle -> TagRead -> RequestBuilt -> Written -> AwaitingResult -> ResultRead
//	     -> Verifying -> DiagnosticRead -> Resolved(success | refused | error)
//
// Every read and write happens in that order on the calling goroutine. Settle
// delays are blocking waits on an injected clock. A transport or decode failure
// resolves the workflow as an error; it is never retried.
//
// A failed signature check does not stop the workflow. The diagnostic region is
// still read so the operator sees the full tag state, but nothing is persisted.
//
// Listener feeds card-present events to the orchestrator one at a time. A card
// presented while a workflow is in flight is ignored.
package provisioner
