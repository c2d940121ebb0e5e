package engine

import (
	"github.com/SawyerHood/codex/protocol"
)

// Observer receives notifications as the engine mutates its model.
// Observers are invoked synchronously on the goroutine applying events;
// keep handlers fast and never call back into the engine from one.
type Observer interface {
	OnNotification(n Notification)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(n Notification)

func (f ObserverFunc) OnNotification(n Notification) { f(n) }

// Notification is the interface for engine state-change notifications.
type Notification interface {
	notification() // sealed marker
}

// SessionConfigured fires once the backend has announced the session.
type SessionConfigured struct {
	Info SessionInfo
}

func (SessionConfigured) notification() {}

// TurnStarted fires when the backend begins working on a submission.
type TurnStarted struct {
	TurnID             string
	ModelContextWindow int64 // 0 when the backend did not report one
}

func (TurnStarted) notification() {}

// TurnFinished fires when a turn reaches a terminal state, after its
// streams are flushed, its calls force-closed, and its approvals
// cancelled.
type TurnFinished struct {
	Turn TurnRecord
}

func (TurnFinished) notification() {}

// TurnErrored fires on an error or stream_error event. The turn, if
// tracked, is marked errored but not terminated.
type TurnErrored struct {
	TurnID  string
	Message string
	Stream  bool // true for stream_error
}

func (TurnErrored) notification() {}

// StreamDelta fires for every text delta, before assembly completes, so
// partial output can render live.
type StreamDelta struct {
	TurnID string
	Kind   StreamKind
	Delta  string
}

func (StreamDelta) notification() {}

// StreamFinal fires when a stream reaches its canonical final text,
// whether by a terminating event, a section break, or a turn flush.
type StreamFinal struct {
	TurnID string
	Kind   StreamKind
	Text   string
}

func (StreamFinal) notification() {}

// CallOpened fires when an exec, MCP tool, or patch call begins.
type CallOpened struct {
	Call PendingCall
}

func (CallOpened) notification() {}

// CallClosed fires when a call ends. Outcome carries the backend's
// end-event payload and is zero for force-closed calls.
type CallClosed struct {
	Call    ClosedCall
	Outcome CallOutcome
}

func (CallClosed) notification() {}

// CallOutput fires for each decoded chunk of exec output.
type CallOutput struct {
	TurnID string
	CallID string
	Kind   CallKind
	Stream protocol.ExecOutputStream
	Data   []byte
}

func (CallOutput) notification() {}

// ApprovalRequested fires when the backend suspends a call awaiting a
// decision. Decision receives exactly one value when the request
// resolves.
type ApprovalRequested struct {
	Request  ApprovalRequest
	Decision <-chan Decision
}

func (ApprovalRequested) notification() {}

// ApprovalResolved fires when a pending approval is decided, cancelled,
// or timed out.
type ApprovalResolved struct {
	Request  ApprovalRequest
	Status   ApprovalStatus
	Decision protocol.ReviewDecision // zero unless decided by a reviewer
}

func (ApprovalResolved) notification() {}

// PlanUpdated fires when the agent presents a new plan.
type PlanUpdated struct {
	Plan PlanSnapshot
}

func (PlanUpdated) notification() {}

// UsageUpdated fires when a token_count event folds into a turn.
type UsageUpdated struct {
	TurnID string
	Usage  protocol.TokenUsage
}

func (UsageUpdated) notification() {}

// TurnDiff fires with the accumulated unified diff of a turn's changes.
type TurnDiff struct {
	TurnID      string
	UnifiedDiff string
}

func (TurnDiff) notification() {}

// BackgroundNote fires for informational background_event messages.
type BackgroundNote struct {
	TurnID  string
	Message string
}

func (BackgroundNote) notification() {}

// HistoryEntryFetched fires when the backend answers a history lookup.
type HistoryEntryFetched struct {
	LogID  uint64
	Offset int
	Entry  *protocol.HistoryEntry // nil when the backend had no entry
}

func (HistoryEntryFetched) notification() {}

// ToolListUpdated fires when the backend reports its MCP tool table.
type ToolListUpdated struct {
	Tools map[string]protocol.MCPToolInfo
}

func (ToolListUpdated) notification() {}

// PromptListUpdated fires when the backend reports its custom prompts.
type PromptListUpdated struct {
	Prompts []protocol.CustomPrompt
}

func (PromptListUpdated) notification() {}

// Diagnostic fires for non-fatal protocol findings: malformed lines,
// orphan events, duplicate opens, consistency violations. The stream
// keeps flowing.
type Diagnostic struct {
	TurnID  string
	CallID  string
	Message string
	Err     error
}

func (Diagnostic) notification() {}

// StreamClosed fires once when the transport is lost or shut, after
// every live turn has been forced to aborted.
type StreamClosed struct{}

func (StreamClosed) notification() {}

// ShutdownComplete fires when the backend acknowledges a shutdown op.
type ShutdownComplete struct{}

func (ShutdownComplete) notification() {}
