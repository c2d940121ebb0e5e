package engine

import "errors"

// Sentinel errors for protocol-level consistency findings. These are
// non-fatal: the engine reports them as Diagnostics and keeps consuming
// the stream. Callers match with errors.Is.
var (
	// ErrUnknownTurn marks an event that names a turn id the tracker has
	// never seen. Only session_configured and task_started may create state.
	ErrUnknownTurn = errors.New("unknown turn")

	// ErrTerminalTurn marks a lifecycle transition attempted on a turn that
	// already completed or aborted.
	ErrTerminalTurn = errors.New("turn already terminal")

	// ErrDuplicateCall marks a begin event whose (kind, call_id) is already
	// open. The registry overwrites the stale entry and reports.
	ErrDuplicateCall = errors.New("duplicate call begin")

	// ErrOrphanEnd marks an end or output event with no matching open call.
	ErrOrphanEnd = errors.New("call event without matching begin")

	// ErrDuplicateApproval marks a second approval request for a call_id
	// that already has one pending. The first request stays authoritative.
	ErrDuplicateApproval = errors.New("approval already pending for call")

	// ErrUnknownApproval marks a decision for a call_id with no pending
	// approval request.
	ErrUnknownApproval = errors.New("no pending approval for call")

	// ErrStreamClosed marks use of an engine or client whose event stream
	// has been closed.
	ErrStreamClosed = errors.New("event stream closed")
)
