package engine

import (
	"sync"
	"time"

	"github.com/SawyerHood/codex/protocol"
)

// TurnState is the lifecycle state of one submission's turn.
//
//	started -> streaming* -> completed | aborted
//
// errored is entered on error events and is not terminal: an errored
// turn may still stream, complete, or abort. Only completed and aborted
// end a turn.
type TurnState string

const (
	StateStarted   TurnState = "started"
	StateStreaming TurnState = "streaming"
	StateCompleted TurnState = "completed"
	StateAborted   TurnState = "aborted"
	StateErrored   TurnState = "errored"
)

// IsTerminal returns true once the turn can never transition again.
func (s TurnState) IsTerminal() bool {
	return s == StateCompleted || s == StateAborted
}

// TurnRecord is a snapshot of one turn's tracked state.
type TurnRecord struct {
	ID                 string
	State              TurnState
	ModelContextWindow int64 // 0 when the backend did not report one
	Usage              protocol.TokenUsage
	LastAgentMessage   string
	AbortReason        protocol.TurnAbortReason
	Errors             []string
	StartedAt          time.Time
	LastActivity       time.Time
	FinishedAt         time.Time
}

func (r *TurnRecord) snapshot() TurnRecord {
	out := *r
	if len(r.Errors) > 0 {
		out.Errors = append([]string(nil), r.Errors...)
	}
	return out
}

// TurnTracker owns the turn state machines, keyed by submission id.
type TurnTracker struct {
	mu     sync.RWMutex
	turns  map[string]*TurnRecord
	order  []string
	active string
}

func NewTurnTracker() *TurnTracker {
	return &TurnTracker{
		turns: make(map[string]*TurnRecord),
	}
}

// Begin starts tracking a turn and makes it the active one. restarted
// reports that the id already had a live turn, which the caller surfaces
// as a consistency finding; tracking restarts either way.
func (t *TurnTracker) Begin(id string, contextWindow int64, now time.Time) (restarted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.turns[id]; ok {
		restarted = !prev.State.IsTerminal()
	} else {
		t.order = append(t.order, id)
	}
	t.turns[id] = &TurnRecord{
		ID:                 id,
		State:              StateStarted,
		ModelContextWindow: contextWindow,
		StartedAt:          now,
		LastActivity:       now,
	}
	t.active = id
	return restarted
}

// Touch marks agent/tool/exec activity on the turn, moving it to
// streaming. Touching an unknown or terminal turn fails.
func (t *TurnTracker) Touch(id string, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.turns[id]
	if !ok {
		return ErrUnknownTurn
	}
	if rec.State.IsTerminal() {
		return ErrTerminalTurn
	}
	rec.State = StateStreaming
	rec.LastActivity = now
	return nil
}

// Complete moves the turn to its completed terminal state.
func (t *TurnTracker) Complete(id, lastAgentMessage string, now time.Time) (TurnRecord, error) {
	return t.finish(id, now, func(rec *TurnRecord) {
		rec.State = StateCompleted
		rec.LastAgentMessage = lastAgentMessage
	})
}

// Abort moves the turn to its aborted terminal state.
func (t *TurnTracker) Abort(id string, reason protocol.TurnAbortReason, now time.Time) (TurnRecord, error) {
	return t.finish(id, now, func(rec *TurnRecord) {
		rec.State = StateAborted
		rec.AbortReason = reason
	})
}

func (t *TurnTracker) finish(id string, now time.Time, apply func(*TurnRecord)) (TurnRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.turns[id]
	if !ok {
		return TurnRecord{}, ErrUnknownTurn
	}
	if rec.State.IsTerminal() {
		return rec.snapshot(), ErrTerminalTurn
	}
	apply(rec)
	rec.FinishedAt = now
	rec.LastActivity = now
	if t.active == id {
		t.active = ""
	}
	return rec.snapshot(), nil
}

// MarkError records an error event against the turn. The turn becomes
// errored but stays live.
func (t *TurnTracker) MarkError(id, message string, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.turns[id]
	if !ok {
		return ErrUnknownTurn
	}
	if rec.State.IsTerminal() {
		return ErrTerminalTurn
	}
	rec.State = StateErrored
	rec.Errors = append(rec.Errors, message)
	rec.LastActivity = now
	return nil
}

// AddUsage folds a cumulative token_count snapshot into the turn. The
// reported values are stored as received; monotonicity and total
// consistency violations come back as advisory issues.
func (t *TurnTracker) AddUsage(id string, usage protocol.TokenUsage, now time.Time) (protocol.TokenUsage, []string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.turns[id]
	if !ok {
		return protocol.TokenUsage{}, nil, ErrUnknownTurn
	}
	if rec.State.IsTerminal() {
		return rec.Usage, nil, ErrTerminalTurn
	}
	merged, issues := foldUsage(rec.Usage, usage)
	rec.Usage = merged
	return merged, issues, nil
}

// ActiveID returns the turn currently being worked, if any.
func (t *TurnTracker) ActiveID() (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active, t.active != ""
}

// Get returns a snapshot of one turn.
func (t *TurnTracker) Get(id string) (TurnRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.turns[id]
	if !ok {
		return TurnRecord{}, false
	}
	return rec.snapshot(), true
}

// All returns snapshots of every tracked turn in first-seen order.
func (t *TurnTracker) All() []TurnRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]TurnRecord, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.turns[id].snapshot())
	}
	return out
}

// OpenIDs returns the ids of every non-terminal turn in first-seen order.
func (t *TurnTracker) OpenIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var ids []string
	for _, id := range t.order {
		if !t.turns[id].State.IsTerminal() {
			ids = append(ids, id)
		}
	}
	return ids
}
