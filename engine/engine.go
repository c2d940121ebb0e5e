// Package engine correlates the backend's ordered event stream into live
// session state: turn lifecycles, in-flight exec/MCP/patch calls,
// streaming text assembly, suspended approvals, plan and token tracking.
// Events are applied one at a time in arrival order and never reordered;
// observers receive synchronous notifications, and snapshot queries are
// safe to run concurrently with the applying goroutine.
package engine

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/SawyerHood/codex/history"
	"github.com/SawyerHood/codex/protocol"
)

// SessionInfo holds what session_configured announced.
type SessionInfo struct {
	SessionID         string
	Model             string
	HistoryLogID      uint64
	HistoryEntryCount int
	ConfiguredAt      time.Time
}

// TurnSnapshot is a turn's record together with the state other
// sub-engines still hold for it.
type TurnSnapshot struct {
	TurnRecord
	OpenCalls        []PendingCall
	PendingApprovals []ApprovalRequest
}

// Engine demultiplexes events onto the turn tracker, call registry,
// stream assembler, approval gate, and plan tracker.
type Engine struct {
	log             *slog.Logger
	history         *history.Store
	archive         *history.Archive
	callTimeout     time.Duration
	approvalTimeout time.Duration
	tailLimit       int

	turns   *TurnTracker
	calls   *CallRegistry
	streams *StreamAssembler
	gate    *ApprovalGate
	plan    *PlanTracker

	nowFn func() time.Time

	mu         sync.RWMutex
	observers  []Observer
	session    SessionInfo
	configured bool
	closed     bool
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithHistory wires a cross-session history store: finalized agent
// messages are appended to it and session_configured rebinds its log id.
func WithHistory(s *history.Store) Option {
	return func(e *Engine) { e.history = s }
}

// WithTranscript wires a transcript archive: finalized messages,
// reasoning sections, and call begin/end pairs are recorded as
// ResponseItems under the session's conversation id.
func WithTranscript(a *history.Archive) Option {
	return func(e *Engine) { e.archive = a }
}

// WithCallTimeout sets the age at which ExpireStale force-closes calls
// that never saw an end event. Zero disables the sweep.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Engine) { e.callTimeout = d }
}

// WithApprovalTimeout sets the age at which ExpireStale times out
// unanswered approval requests. Zero disables the sweep.
func WithApprovalTimeout(d time.Duration) Option {
	return func(e *Engine) { e.approvalTimeout = d }
}

// WithOutputTailLimit caps retained exec output bytes per stream.
func WithOutputTailLimit(n int) Option {
	return func(e *Engine) { e.tailLimit = n }
}

// New creates an engine with no tracked state.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:     slog.Default(),
		nowFn:   time.Now,
		turns:   NewTurnTracker(),
		streams: NewStreamAssembler(),
		gate:    NewApprovalGate(),
		plan:    NewPlanTracker(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.calls = NewCallRegistry(e.tailLimit)
	return e
}

// AddObserver registers an observer for every subsequent notification.
func (e *Engine) AddObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

func (e *Engine) notify(n Notification) {
	e.mu.RLock()
	obs := e.observers
	e.mu.RUnlock()
	for _, o := range obs {
		o.OnNotification(n)
	}
}

func (e *Engine) diagnostic(turnID, callID, message string, err error) {
	args := make([]any, 0, 6)
	if turnID != "" {
		args = append(args, "turn", turnID)
	}
	if callID != "" {
		args = append(args, "call_id", callID)
	}
	if err != nil {
		args = append(args, "error", err)
	}
	e.log.Warn(message, args...)
	e.notify(Diagnostic{TurnID: turnID, CallID: callID, Message: message, Err: err})
}

// ApplyLine parses one wire line and applies it. Malformed lines are
// reported and skipped; the stream keeps flowing.
func (e *Engine) ApplyLine(line []byte) {
	ev, err := protocol.ParseEvent(line)
	if err != nil {
		e.diagnostic("", "", "skipping malformed event line", err)
		return
	}
	e.Apply(ev)
}

// Apply routes one event to exactly one sub-engine, keyed on the payload
// variant, with ev.ID as the turn correlation key.
func (e *Engine) Apply(ev protocol.Event) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		e.diagnostic(ev.ID, "", "dropping event received after stream close", ErrStreamClosed)
		return
	}

	now := e.nowFn()
	switch msg := ev.Msg.(type) {
	case *protocol.SessionConfiguredMsg:
		e.applySessionConfigured(msg, now)
	case *protocol.TaskStartedMsg:
		e.applyTaskStarted(ev.ID, msg, now)
	case *protocol.TaskCompleteMsg:
		e.applyTaskComplete(ev.ID, msg, now)
	case *protocol.TurnAbortedMsg:
		e.applyTurnAborted(ev.ID, msg, now)
	case *protocol.TokenCountMsg:
		e.applyTokenCount(ev.ID, msg, now)
	case *protocol.AgentMessageDeltaMsg:
		e.applyStreamDelta(ev.ID, StreamAgentMessage, msg.Delta, now)
	case *protocol.AgentMessageMsg:
		e.applyStreamFinal(ev.ID, StreamAgentMessage, msg.Message, now)
	case *protocol.AgentReasoningDeltaMsg:
		e.applyStreamDelta(ev.ID, StreamAgentReasoning, msg.Delta, now)
	case *protocol.AgentReasoningMsg:
		e.applyStreamFinal(ev.ID, StreamAgentReasoning, msg.Text, now)
	case *protocol.AgentReasoningRawContentDeltaMsg:
		e.applyStreamDelta(ev.ID, StreamAgentReasoningRaw, msg.Delta, now)
	case *protocol.AgentReasoningRawContentMsg:
		e.applyStreamFinal(ev.ID, StreamAgentReasoningRaw, msg.Text, now)
	case *protocol.AgentReasoningSectionBreakMsg:
		e.applySectionBreak(ev.ID, now)
	case *protocol.ExecCommandBeginMsg:
		e.applyCallBegin(ev.ID, msg.CallID, CallKindExec, CallMeta{Command: msg.Command, Cwd: msg.Cwd}, now)
	case *protocol.ExecCommandOutputDeltaMsg:
		e.applyExecOutput(ev.ID, msg, now)
	case *protocol.ExecCommandEndMsg:
		e.applyCallEnd(ev.ID, msg.CallID, CallKindExec, CallOutcome{
			ExitCode:     msg.ExitCode,
			Success:      msg.ExitCode == 0,
			Stdout:       msg.Stdout,
			Stderr:       msg.Stderr,
			WireDuration: msg.Duration.Go(),
		}, now)
	case *protocol.MCPToolCallBeginMsg:
		e.applyCallBegin(ev.ID, msg.CallID, CallKindMCPTool, CallMeta{Invocation: msg.Invocation}, now)
	case *protocol.MCPToolCallEndMsg:
		e.applyCallEnd(ev.ID, msg.CallID, CallKindMCPTool, CallOutcome{
			Success:      true,
			Result:       msg.Result,
			WireDuration: msg.Duration.Go(),
		}, now)
	case *protocol.ExecApprovalRequestMsg:
		e.applyApprovalRequest(ev.ID, ApprovalRequest{
			TurnID:  ev.ID,
			CallID:  msg.CallID,
			Kind:    ApprovalExec,
			Command: msg.Command,
			Cwd:     msg.Cwd,
			Reason:  deref(msg.Reason),
		}, now)
	case *protocol.ApplyPatchApprovalRequestMsg:
		e.applyApprovalRequest(ev.ID, ApprovalRequest{
			TurnID:    ev.ID,
			CallID:    msg.CallID,
			Kind:      ApprovalPatch,
			Changes:   msg.Changes,
			GrantRoot: deref(msg.GrantRoot),
			Reason:    deref(msg.Reason),
		}, now)
	case *protocol.PatchApplyBeginMsg:
		e.applyCallBegin(ev.ID, msg.CallID, CallKindPatchApply, CallMeta{AutoApproved: msg.AutoApproved, Changes: msg.Changes}, now)
	case *protocol.PatchApplyEndMsg:
		e.applyCallEnd(ev.ID, msg.CallID, CallKindPatchApply, CallOutcome{
			Success: msg.Success,
			Stdout:  msg.Stdout,
			Stderr:  msg.Stderr,
		}, now)
	case *protocol.TurnDiffMsg:
		e.applyTurnDiff(ev.ID, msg, now)
	case *protocol.BackgroundEventMsg:
		e.notify(BackgroundNote{TurnID: ev.ID, Message: msg.Message})
	case *protocol.GetHistoryEntryResponseMsg:
		e.notify(HistoryEntryFetched{LogID: msg.LogID, Offset: msg.Offset, Entry: msg.Entry})
	case *protocol.MCPListToolsResponseMsg:
		e.notify(ToolListUpdated{Tools: msg.Tools})
	case *protocol.ListCustomPromptsResponseMsg:
		e.notify(PromptListUpdated{Prompts: msg.CustomPrompts})
	case *protocol.PlanUpdateMsg:
		e.applyPlanUpdate(msg, now)
	case *protocol.ErrorMsg:
		e.applyError(ev.ID, msg.Message, false, now)
	case *protocol.StreamErrorMsg:
		e.applyError(ev.ID, msg.Message, true, now)
	case *protocol.ShutdownCompleteMsg:
		e.notify(ShutdownComplete{})
	case protocol.UnknownMsg:
		e.log.Warn("skipping unknown event type", "type", msg.TypeName, "id", ev.ID)
	default:
		e.log.Warn("skipping unhandled event payload", "id", ev.ID)
	}
}

// CloseStream signals transport loss. Every live turn is forced to
// aborted with the full termination cascade, then StreamClosed fires.
// Idempotent; events applied afterwards are dropped with a diagnostic.
func (e *Engine) CloseStream() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	now := e.nowFn()
	for _, id := range e.turns.OpenIDs() {
		rec, err := e.turns.Abort(id, protocol.TurnAbortInterrupted, now)
		if err != nil {
			continue
		}
		e.finishTurn(rec, now)
	}
	e.log.Info("event stream closed")
	e.notify(StreamClosed{})
}

// ExpireStale sweeps the configured call and approval timeouts. The
// caller drives the clock; the engine runs no goroutines of its own.
func (e *Engine) ExpireStale(now time.Time) {
	if e.callTimeout > 0 {
		for _, closed := range e.calls.Expire(now, e.callTimeout) {
			e.diagnostic(closed.TurnID, closed.CallID,
				fmt.Sprintf("%s call saw no end event within %s", closed.Kind, e.callTimeout), nil)
			e.notify(CallClosed{Call: closed})
		}
	}
	if e.approvalTimeout > 0 {
		for _, req := range e.gate.Expire(now, e.approvalTimeout) {
			e.diagnostic(req.TurnID, req.CallID,
				fmt.Sprintf("approval request unanswered after %s", e.approvalTimeout), nil)
			e.notify(ApprovalResolved{Request: req, Status: ApprovalTimedOut})
		}
	}
}

// ResolveApproval delivers a reviewer's decision for a suspended call.
// The client calls this when it writes the matching exec_approval or
// patch_approval submission.
func (e *Engine) ResolveApproval(callID string, review protocol.ReviewDecision) error {
	req, status, err := e.gate.Resolve(callID, review)
	if err != nil {
		return fmt.Errorf("resolving approval for call %q: %w", callID, err)
	}
	e.log.Info("approval resolved", "call_id", callID, "status", string(status))
	e.notify(ApprovalResolved{Request: req, Status: status, Decision: review})
	return nil
}

// --- Event handlers ----------------------------------------------------------

func (e *Engine) applySessionConfigured(msg *protocol.SessionConfiguredMsg, now time.Time) {
	info := SessionInfo{
		SessionID:         msg.SessionID,
		Model:             msg.Model,
		HistoryLogID:      msg.HistoryLogID,
		HistoryEntryCount: msg.HistoryEntryCount,
		ConfiguredAt:      now,
	}
	e.mu.Lock()
	e.session = info
	e.configured = true
	e.mu.Unlock()
	if e.history != nil {
		e.history.SetLogID(msg.HistoryLogID)
	}
	e.log.Info("session configured", "session_id", msg.SessionID, "model", msg.Model)
	e.notify(SessionConfigured{Info: info})
}

func (e *Engine) applyTaskStarted(id string, msg *protocol.TaskStartedMsg, now time.Time) {
	var window int64
	if msg.ModelContextWindow != nil {
		window = *msg.ModelContextWindow
	}
	if restarted := e.turns.Begin(id, window, now); restarted {
		e.diagnostic(id, "", "task_started for a turn that is already live", nil)
	}
	e.notify(TurnStarted{TurnID: id, ModelContextWindow: window})
}

func (e *Engine) applyTaskComplete(id string, msg *protocol.TaskCompleteMsg, now time.Time) {
	rec, err := e.turns.Complete(id, deref(msg.LastAgentMessage), now)
	if err != nil {
		e.diagnostic(id, "", "task_complete could not terminate turn", err)
		return
	}
	e.finishTurn(rec, now)
}

func (e *Engine) applyTurnAborted(id string, msg *protocol.TurnAbortedMsg, now time.Time) {
	rec, err := e.turns.Abort(id, msg.Reason, now)
	if err != nil {
		e.diagnostic(id, "", "turn_aborted could not terminate turn", err)
		return
	}
	e.finishTurn(rec, now)
}

// finishTurn runs the termination cascade: flush residual streams,
// force-close open calls, cancel pending approvals, then announce the
// terminal record. A turn never leaks open state past its lifetime.
func (e *Engine) finishTurn(rec TurnRecord, now time.Time) {
	for _, fin := range e.streams.FlushTurn(rec.ID) {
		e.emitFinal(fin, now)
	}
	for _, closed := range e.calls.ForceCloseTurn(rec.ID, now) {
		e.notify(CallClosed{Call: closed})
	}
	for _, req := range e.gate.CancelTurn(rec.ID) {
		e.notify(ApprovalResolved{Request: req, Status: ApprovalCancelled})
	}
	e.notify(TurnFinished{Turn: rec})
}

func (e *Engine) applyTokenCount(id string, msg *protocol.TokenCountMsg, now time.Time) {
	usage, issues, err := e.turns.AddUsage(id, msg.TokenUsage, now)
	if err != nil {
		e.diagnostic(id, "", "token_count for untracked or finished turn", err)
		return
	}
	for _, issue := range issues {
		e.diagnostic(id, "", "token accounting: "+issue, nil)
	}
	e.notify(UsageUpdated{TurnID: id, Usage: usage})
}

func (e *Engine) applyStreamDelta(id string, kind StreamKind, delta string, now time.Time) {
	if err := e.turns.Touch(id, now); err != nil {
		e.diagnostic(id, "", fmt.Sprintf("%s delta for untracked turn", kind), err)
		return
	}
	e.streams.Append(id, kind, delta)
	e.notify(StreamDelta{TurnID: id, Kind: kind, Delta: delta})
}

func (e *Engine) applyStreamFinal(id string, kind StreamKind, full string, now time.Time) {
	if err := e.turns.Touch(id, now); err != nil {
		e.diagnostic(id, "", fmt.Sprintf("%s final for untracked turn", kind), err)
		return
	}
	text, mismatch := e.streams.Finalize(id, kind, full)
	if mismatch {
		e.diagnostic(id, "", fmt.Sprintf("%s final text disagrees with assembled deltas, keeping the assembly", kind), nil)
	}
	e.emitFinal(FinalText{TurnID: id, Kind: kind, Text: text}, now)
}

func (e *Engine) applySectionBreak(id string, now time.Time) {
	if err := e.turns.Touch(id, now); err != nil {
		e.diagnostic(id, "", "reasoning section break for untracked turn", err)
		return
	}
	if fin, ok := e.streams.SectionBreak(id); ok {
		e.emitFinal(fin, now)
	}
}

// emitFinal announces a canonical final text and feeds the history and
// transcript sinks.
func (e *Engine) emitFinal(fin FinalText, now time.Time) {
	e.notify(StreamFinal{TurnID: fin.TurnID, Kind: fin.Kind, Text: fin.Text})
	switch fin.Kind {
	case StreamAgentMessage:
		e.recordAgentMessage(fin.Text, now)
		e.archiveItem(&protocol.MessageItem{
			Role:    "assistant",
			Content: []protocol.ContentItem{{Type: "output_text", Text: fin.Text}},
		})
	case StreamAgentReasoning:
		e.archiveItem(&protocol.ReasoningItem{
			Summary: []protocol.ContentItem{{Type: "summary_text", Text: fin.Text}},
		})
	}
}

func (e *Engine) recordAgentMessage(text string, now time.Time) {
	if e.history == nil || text == "" {
		return
	}
	e.mu.RLock()
	sessionID := e.session.SessionID
	e.mu.RUnlock()
	e.history.Append(protocol.HistoryEntry{SessionID: sessionID, Ts: now.Unix(), Text: text})
}

func (e *Engine) archiveItem(item protocol.ResponseItem) {
	if e.archive == nil {
		return
	}
	e.mu.RLock()
	sessionID := e.session.SessionID
	e.mu.RUnlock()
	if sessionID == "" {
		return
	}
	e.archive.Transcript(sessionID).Add(item)
}

func (e *Engine) applyCallBegin(turnID, callID string, kind CallKind, meta CallMeta, now time.Time) {
	if err := e.turns.Touch(turnID, now); err != nil {
		e.diagnostic(turnID, callID, fmt.Sprintf("%s begin for untracked turn", kind), err)
		return
	}
	if _, err := e.calls.Open(turnID, callID, kind, meta, now); err != nil {
		e.diagnostic(turnID, callID, fmt.Sprintf("duplicate %s begin overwrote an open call", kind), err)
	}
	e.notify(CallOpened{Call: PendingCall{TurnID: turnID, CallID: callID, Kind: kind, Meta: meta, OpenedAt: now}})
	e.archiveItem(&protocol.FunctionCallItem{
		Name:      callName(kind, meta),
		Arguments: callArguments(kind, meta),
		CallID:    callID,
	})
}

func (e *Engine) applyCallEnd(turnID, callID string, kind CallKind, outcome CallOutcome, now time.Time) {
	if err := e.turns.Touch(turnID, now); err != nil {
		e.diagnostic(turnID, callID, fmt.Sprintf("%s end for untracked turn", kind), err)
		return
	}
	closed, err := e.calls.Close(callID, kind, now)
	if err != nil {
		e.diagnostic(turnID, callID, fmt.Sprintf("%s end without a matching begin", kind), err)
		return
	}
	e.notify(CallClosed{Call: closed, Outcome: outcome})
	e.archiveItem(&protocol.FunctionCallOutputItem{CallID: callID, Output: callOutput(kind, outcome)})
}

func (e *Engine) applyExecOutput(turnID string, msg *protocol.ExecCommandOutputDeltaMsg, now time.Time) {
	if err := e.turns.Touch(turnID, now); err != nil {
		e.diagnostic(turnID, msg.CallID, "exec output for untracked turn", err)
		return
	}
	data, err := base64.StdEncoding.DecodeString(msg.Chunk)
	if err != nil {
		e.diagnostic(turnID, msg.CallID, "exec output chunk is not valid base64", err)
		return
	}
	if err := e.calls.AppendOutput(msg.CallID, CallKindExec, msg.Stream, data); err != nil {
		e.diagnostic(turnID, msg.CallID, "exec output without a matching begin", err)
		return
	}
	e.notify(CallOutput{TurnID: turnID, CallID: msg.CallID, Kind: CallKindExec, Stream: msg.Stream, Data: data})
}

func (e *Engine) applyApprovalRequest(turnID string, req ApprovalRequest, now time.Time) {
	if err := e.turns.Touch(turnID, now); err != nil {
		e.diagnostic(turnID, req.CallID, "approval request for untracked turn", err)
		return
	}
	req.RequestedAt = now
	ch, err := e.gate.Request(req)
	if err != nil {
		e.diagnostic(turnID, req.CallID, "second approval request while one is pending", err)
		return
	}
	e.log.Info("approval requested", "kind", string(req.Kind), "call_id", req.CallID, "turn", turnID)
	e.notify(ApprovalRequested{Request: req, Decision: ch})
}

func (e *Engine) applyTurnDiff(id string, msg *protocol.TurnDiffMsg, now time.Time) {
	if err := e.turns.Touch(id, now); err != nil {
		e.diagnostic(id, "", "turn diff for untracked turn", err)
		return
	}
	e.notify(TurnDiff{TurnID: id, UnifiedDiff: msg.UnifiedDiff})
}

func (e *Engine) applyPlanUpdate(msg *protocol.PlanUpdateMsg, now time.Time) {
	snap := e.plan.Update(deref(msg.Explanation), msg.Plan, now)
	for _, issue := range snap.Issues {
		e.diagnostic("", "", "plan: "+issue, nil)
	}
	e.notify(PlanUpdated{Plan: snap})
}

func (e *Engine) applyError(id, message string, stream bool, now time.Time) {
	if _, tracked := e.turns.Get(id); tracked {
		if err := e.turns.MarkError(id, message, now); err != nil {
			e.diagnostic(id, "", "error event for finished turn", err)
		}
	}
	e.notify(TurnErrored{TurnID: id, Message: message, Stream: stream})
}

// --- Snapshot queries --------------------------------------------------------

// SessionInfo returns what session_configured announced, if it arrived.
func (e *Engine) SessionInfo() (SessionInfo, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session, e.configured
}

// ActiveTurnID returns the turn currently being worked, if any.
func (e *Engine) ActiveTurnID() (string, bool) {
	return e.turns.ActiveID()
}

// Turn returns a full snapshot of one turn.
func (e *Engine) Turn(id string) (TurnSnapshot, bool) {
	rec, ok := e.turns.Get(id)
	if !ok {
		return TurnSnapshot{}, false
	}
	return TurnSnapshot{
		TurnRecord:       rec,
		OpenCalls:        e.calls.OpenCalls(id),
		PendingApprovals: e.gate.PendingForTurn(id),
	}, true
}

// Turns returns snapshots of every tracked turn in first-seen order.
func (e *Engine) Turns() []TurnSnapshot {
	recs := e.turns.All()
	out := make([]TurnSnapshot, 0, len(recs))
	for _, rec := range recs {
		out = append(out, TurnSnapshot{
			TurnRecord:       rec,
			OpenCalls:        e.calls.OpenCalls(rec.ID),
			PendingApprovals: e.gate.PendingForTurn(rec.ID),
		})
	}
	return out
}

// OpenCalls returns the turn's open calls, oldest first.
func (e *Engine) OpenCalls(turnID string) []PendingCall {
	return e.calls.OpenCalls(turnID)
}

// PendingApprovals returns every outstanding approval request.
func (e *Engine) PendingApprovals() []ApprovalRequest {
	return e.gate.Pending()
}

// Plan returns the agent's latest presented plan, if any.
func (e *Engine) Plan() (PlanSnapshot, bool) {
	return e.plan.Current()
}

// History returns the wired history store, or nil.
func (e *Engine) History() *history.Store {
	return e.history
}

// Transcript returns the wired transcript archive, or nil.
func (e *Engine) Transcript() *history.Archive {
	return e.archive
}

// Closed reports whether CloseStream has run.
func (e *Engine) Closed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}

// --- Helpers -----------------------------------------------------------------

func callName(kind CallKind, meta CallMeta) string {
	switch kind {
	case CallKindExec:
		return "shell"
	case CallKindMCPTool:
		return meta.Invocation.Server + "." + meta.Invocation.Tool
	default:
		return "apply_patch"
	}
}

func callArguments(kind CallKind, meta CallMeta) string {
	switch kind {
	case CallKindExec:
		args, _ := json.Marshal(struct {
			Command []string `json:"command"`
			Cwd     string   `json:"cwd"`
		}{meta.Command, meta.Cwd})
		return string(args)
	case CallKindMCPTool:
		if len(meta.Invocation.Arguments) > 0 {
			return string(meta.Invocation.Arguments)
		}
		return "{}"
	default:
		paths := make([]string, 0, len(meta.Changes))
		for path := range meta.Changes {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		args, _ := json.Marshal(struct {
			Paths []string `json:"paths"`
		}{paths})
		return string(args)
	}
}

func callOutput(kind CallKind, outcome CallOutcome) string {
	if kind == CallKindMCPTool {
		return string(outcome.Result)
	}
	if outcome.Stdout == "" && outcome.Stderr != "" {
		return outcome.Stderr
	}
	return outcome.Stdout
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
