package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/SawyerHood/codex/protocol"
)

// DefaultOutputTailLimit caps the retained exec output per stream.
const DefaultOutputTailLimit = 8 * 1024

// CallKind categorises in-flight backend calls. The registry is one
// mechanism indexed by (kind, call_id), not one state machine per kind.
type CallKind string

const (
	CallKindExec       CallKind = "exec"
	CallKindMCPTool    CallKind = "mcp_tool"
	CallKindPatchApply CallKind = "patch_apply"
)

// CallMeta holds the begin-event payload for whichever kind the call is.
type CallMeta struct {
	// Exec calls.
	Command []string
	Cwd     string

	// MCP tool calls.
	Invocation protocol.MCPInvocation

	// Patch applies.
	AutoApproved bool
	Changes      map[string]protocol.FileChange
}

// PendingCall is a snapshot of one open call.
type PendingCall struct {
	TurnID     string
	CallID     string
	Kind       CallKind
	Meta       CallMeta
	OpenedAt   time.Time
	StdoutTail []byte
	StderrTail []byte
}

// ClosedCall is the registry's record of a finished call. Elapsed is the
// registry's own wall-clock measurement and is what local accounting
// uses; the duration the backend reports travels in CallOutcome and is
// what display surfaces use.
type ClosedCall struct {
	PendingCall
	ClosedAt time.Time
	Elapsed  time.Duration
	Forced   bool // closed by turn termination or expiry, not an end event
}

// CallOutcome carries the end-event payload for a closed call.
type CallOutcome struct {
	ExitCode     int
	Success      bool
	Stdout       string
	Stderr       string
	Result       []byte // raw MCP tool result
	WireDuration time.Duration
}

type callKey struct {
	kind CallKind
	id   string
}

type callRecord struct {
	turnID   string
	callID   string
	kind     CallKind
	meta     CallMeta
	openedAt time.Time
	stdout   outputTail
	stderr   outputTail
}

func (r *callRecord) snapshot() PendingCall {
	return PendingCall{
		TurnID:     r.turnID,
		CallID:     r.callID,
		Kind:       r.kind,
		Meta:       r.meta,
		OpenedAt:   r.openedAt,
		StdoutTail: r.stdout.bytes(),
		StderrTail: r.stderr.bytes(),
	}
}

// outputTail keeps the last limit bytes written to it.
type outputTail struct {
	limit int
	data  []byte
}

func (t *outputTail) append(p []byte) {
	t.data = append(t.data, p...)
	if len(t.data) > t.limit {
		trimmed := make([]byte, t.limit)
		copy(trimmed, t.data[len(t.data)-t.limit:])
		t.data = trimmed
	}
}

func (t *outputTail) bytes() []byte {
	if len(t.data) == 0 {
		return nil
	}
	out := make([]byte, len(t.data))
	copy(out, t.data)
	return out
}

// CallRegistry tracks every open call across all live turns. call_id is
// unique among open calls of a kind; reuse after closure is legal, and
// calls of different kinds or ids may be open concurrently.
type CallRegistry struct {
	mu        sync.RWMutex
	open      map[callKey]*callRecord
	tailLimit int
}

// NewCallRegistry creates a registry retaining tailLimit bytes of exec
// output per stream (DefaultOutputTailLimit when <= 0).
func NewCallRegistry(tailLimit int) *CallRegistry {
	if tailLimit <= 0 {
		tailLimit = DefaultOutputTailLimit
	}
	return &CallRegistry{
		open:      make(map[callKey]*callRecord),
		tailLimit: tailLimit,
	}
}

// Open registers a call. A duplicate begin for an already-open
// (kind, call_id) is non-fatal: the stale entry is overwritten and
// returned alongside ErrDuplicateCall.
func (r *CallRegistry) Open(turnID, callID string, kind CallKind, meta CallMeta, now time.Time) (*PendingCall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := callKey{kind: kind, id: callID}
	var prev *PendingCall
	var err error
	if old, ok := r.open[key]; ok {
		snap := old.snapshot()
		prev = &snap
		err = ErrDuplicateCall
	}
	r.open[key] = &callRecord{
		turnID:   turnID,
		callID:   callID,
		kind:     kind,
		meta:     meta,
		openedAt: now,
		stdout:   outputTail{limit: r.tailLimit},
		stderr:   outputTail{limit: r.tailLimit},
	}
	return prev, err
}

// Close removes an open call and returns its record. An end with no
// matching begin returns ErrOrphanEnd.
func (r *CallRegistry) Close(callID string, kind CallKind, now time.Time) (ClosedCall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := callKey{kind: kind, id: callID}
	rec, ok := r.open[key]
	if !ok {
		return ClosedCall{}, ErrOrphanEnd
	}
	delete(r.open, key)
	return ClosedCall{
		PendingCall: rec.snapshot(),
		ClosedAt:    now,
		Elapsed:     now.Sub(rec.openedAt),
	}, nil
}

// AppendOutput retains a tail of decoded output bytes on an open call.
func (r *CallRegistry) AppendOutput(callID string, kind CallKind, stream protocol.ExecOutputStream, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.open[callKey{kind: kind, id: callID}]
	if !ok {
		return ErrOrphanEnd
	}
	if stream == protocol.ExecOutputStderr {
		rec.stderr.append(data)
	} else {
		rec.stdout.append(data)
	}
	return nil
}

// ForceCloseTurn removes every open call belonging to the turn. Turn
// termination runs this so no entry outlives its turn.
func (r *CallRegistry) ForceCloseTurn(turnID string, now time.Time) []ClosedCall {
	r.mu.Lock()
	defer r.mu.Unlock()

	var closed []ClosedCall
	for key, rec := range r.open {
		if rec.turnID != turnID {
			continue
		}
		delete(r.open, key)
		closed = append(closed, ClosedCall{
			PendingCall: rec.snapshot(),
			ClosedAt:    now,
			Elapsed:     now.Sub(rec.openedAt),
			Forced:      true,
		})
	}
	sortClosed(closed)
	return closed
}

// Expire force-closes every open call older than maxAge.
func (r *CallRegistry) Expire(now time.Time, maxAge time.Duration) []ClosedCall {
	r.mu.Lock()
	defer r.mu.Unlock()

	var closed []ClosedCall
	for key, rec := range r.open {
		if now.Sub(rec.openedAt) <= maxAge {
			continue
		}
		delete(r.open, key)
		closed = append(closed, ClosedCall{
			PendingCall: rec.snapshot(),
			ClosedAt:    now,
			Elapsed:     now.Sub(rec.openedAt),
			Forced:      true,
		})
	}
	sortClosed(closed)
	return closed
}

// Stale returns snapshots of open calls older than maxAge, oldest first.
func (r *CallRegistry) Stale(now time.Time, maxAge time.Duration) []PendingCall {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stale []PendingCall
	for _, rec := range r.open {
		if now.Sub(rec.openedAt) > maxAge {
			stale = append(stale, rec.snapshot())
		}
	}
	sortPending(stale)
	return stale
}

// OpenCalls returns snapshots of the turn's open calls, oldest first.
func (r *CallRegistry) OpenCalls(turnID string) []PendingCall {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var calls []PendingCall
	for _, rec := range r.open {
		if rec.turnID == turnID {
			calls = append(calls, rec.snapshot())
		}
	}
	sortPending(calls)
	return calls
}

// OpenCount returns the number of open calls across all turns.
func (r *CallRegistry) OpenCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.open)
}

func sortPending(calls []PendingCall) {
	sort.Slice(calls, func(i, j int) bool {
		if calls[i].OpenedAt.Equal(calls[j].OpenedAt) {
			return calls[i].CallID < calls[j].CallID
		}
		return calls[i].OpenedAt.Before(calls[j].OpenedAt)
	})
}

func sortClosed(calls []ClosedCall) {
	sort.Slice(calls, func(i, j int) bool {
		if calls[i].OpenedAt.Equal(calls[j].OpenedAt) {
			return calls[i].CallID < calls[j].CallID
		}
		return calls[i].OpenedAt.Before(calls[j].OpenedAt)
	})
}
