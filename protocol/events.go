// Package protocol defines the wire vocabulary of the event stream spoken
// between the agent backend and a frontend: the Event envelope with its
// tagged EventMsg payloads flowing backend→frontend, and the Submission
// envelope with its tagged Op payloads flowing frontend→backend. Lines are
// newline-delimited JSON in both directions.
package protocol

import "encoding/json"

// EventMsgType is the wire discriminant of an EventMsg, carried in msg.type.
type EventMsgType string

const (
	EventTypeError                     EventMsgType = "error"
	EventTypeStreamError               EventMsgType = "stream_error"
	EventTypeTaskStarted               EventMsgType = "task_started"
	EventTypeTaskComplete              EventMsgType = "task_complete"
	EventTypeTurnAborted               EventMsgType = "turn_aborted"
	EventTypeTokenCount                EventMsgType = "token_count"
	EventTypeAgentMessage              EventMsgType = "agent_message"
	EventTypeAgentMessageDelta         EventMsgType = "agent_message_delta"
	EventTypeAgentReasoning            EventMsgType = "agent_reasoning"
	EventTypeAgentReasoningDelta       EventMsgType = "agent_reasoning_delta"
	EventTypeAgentReasoningRawContent  EventMsgType = "agent_reasoning_raw_content"
	EventTypeAgentReasoningRawDelta    EventMsgType = "agent_reasoning_raw_content_delta"
	EventTypeReasoningSectionBreak     EventMsgType = "agent_reasoning_section_break"
	EventTypeSessionConfigured         EventMsgType = "session_configured"
	EventTypeMCPToolCallBegin          EventMsgType = "mcp_tool_call_begin"
	EventTypeMCPToolCallEnd            EventMsgType = "mcp_tool_call_end"
	EventTypeExecCommandBegin          EventMsgType = "exec_command_begin"
	EventTypeExecCommandOutputDelta    EventMsgType = "exec_command_output_delta"
	EventTypeExecCommandEnd            EventMsgType = "exec_command_end"
	EventTypeExecApprovalRequest       EventMsgType = "exec_approval_request"
	EventTypeApplyPatchApprovalRequest EventMsgType = "apply_patch_approval_request"
	EventTypePatchApplyBegin           EventMsgType = "patch_apply_begin"
	EventTypePatchApplyEnd             EventMsgType = "patch_apply_end"
	EventTypeTurnDiff                  EventMsgType = "turn_diff"
	EventTypeBackgroundEvent           EventMsgType = "background_event"
	EventTypeGetHistoryEntryResponse   EventMsgType = "get_history_entry_response"
	EventTypeMCPListToolsResponse      EventMsgType = "mcp_list_tools_response"
	EventTypeListCustomPromptsResponse EventMsgType = "list_custom_prompts_response"
	EventTypePlanUpdate                EventMsgType = "plan_update"
	EventTypeShutdownComplete          EventMsgType = "shutdown_complete"
)

// EventMsg is the closed union of event payloads. The concrete type is
// discriminated by msg.type on the wire.
type EventMsg interface {
	MsgType() EventMsgType
}

// Event is the envelope for every backend→frontend line. ID correlates the
// payload to the submission (turn) that caused it. Events for a given ID
// arrive causally ordered.
// Example: {"id":"3","msg":{"type":"agent_message_delta","delta":"Hel"}}
type Event struct {
	ID  string   `json:"id"`
	Msg EventMsg `json:"msg"`
}

// ErrorMsg reports a turn-level error. It does not by itself terminate the
// turn; only task_complete and turn_aborted are terminal.
type ErrorMsg struct {
	Message string `json:"message"`
}

func (ErrorMsg) MsgType() EventMsgType { return EventTypeError }

// StreamErrorMsg reports a model-stream error the backend is retrying.
type StreamErrorMsg struct {
	Message string `json:"message"`
}

func (StreamErrorMsg) MsgType() EventMsgType { return EventTypeStreamError }

// TaskStartedMsg marks the beginning of a turn.
type TaskStartedMsg struct {
	ModelContextWindow *int64 `json:"model_context_window,omitempty"`
}

func (TaskStartedMsg) MsgType() EventMsgType { return EventTypeTaskStarted }

// TaskCompleteMsg marks the successful end of a turn.
type TaskCompleteMsg struct {
	LastAgentMessage *string `json:"last_agent_message,omitempty"`
}

func (TaskCompleteMsg) MsgType() EventMsgType { return EventTypeTaskComplete }

// TurnAbortReason says why a turn was aborted.
type TurnAbortReason string

const (
	// TurnAbortInterrupted means the user interrupted the turn.
	TurnAbortInterrupted TurnAbortReason = "interrupted"
	// TurnAbortReplaced means a newer submission superseded the turn.
	TurnAbortReplaced TurnAbortReason = "replaced"
)

// TurnAbortedMsg marks an aborted turn.
type TurnAbortedMsg struct {
	Reason TurnAbortReason `json:"reason"`
}

func (TurnAbortedMsg) MsgType() EventMsgType { return EventTypeTurnAborted }

// TokenCountMsg reports cumulative token usage for the turn.
type TokenCountMsg struct {
	TokenUsage
}

func (TokenCountMsg) MsgType() EventMsgType { return EventTypeTokenCount }

// AgentMessageMsg carries a complete agent message.
type AgentMessageMsg struct {
	Message string `json:"message"`
}

func (AgentMessageMsg) MsgType() EventMsgType { return EventTypeAgentMessage }

// AgentMessageDeltaMsg carries one streamed chunk of the agent message.
type AgentMessageDeltaMsg struct {
	Delta string `json:"delta"`
}

func (AgentMessageDeltaMsg) MsgType() EventMsgType { return EventTypeAgentMessageDelta }

// AgentReasoningMsg carries a complete reasoning summary section.
type AgentReasoningMsg struct {
	Text string `json:"text"`
}

func (AgentReasoningMsg) MsgType() EventMsgType { return EventTypeAgentReasoning }

// AgentReasoningDeltaMsg carries one streamed chunk of reasoning summary.
type AgentReasoningDeltaMsg struct {
	Delta string `json:"delta"`
}

func (AgentReasoningDeltaMsg) MsgType() EventMsgType { return EventTypeAgentReasoningDelta }

// AgentReasoningRawContentMsg carries complete raw chain-of-thought text.
type AgentReasoningRawContentMsg struct {
	Text string `json:"text"`
}

func (AgentReasoningRawContentMsg) MsgType() EventMsgType { return EventTypeAgentReasoningRawContent }

// AgentReasoningRawContentDeltaMsg carries one streamed chunk of raw
// chain-of-thought text.
type AgentReasoningRawContentDeltaMsg struct {
	Delta string `json:"delta"`
}

func (AgentReasoningRawContentDeltaMsg) MsgType() EventMsgType { return EventTypeAgentReasoningRawDelta }

// AgentReasoningSectionBreakMsg separates reasoning sections; the text
// accumulated so far forms one completed section.
type AgentReasoningSectionBreakMsg struct{}

func (AgentReasoningSectionBreakMsg) MsgType() EventMsgType { return EventTypeReasoningSectionBreak }

// SessionConfiguredMsg acknowledges session setup. It is the first event of
// a session and the only one besides task_started permitted to create
// tracked state implicitly.
type SessionConfiguredMsg struct {
	SessionID         string `json:"session_id"`
	Model             string `json:"model"`
	HistoryLogID      uint64 `json:"history_log_id"`
	HistoryEntryCount int    `json:"history_entry_count"`
}

func (SessionConfiguredMsg) MsgType() EventMsgType { return EventTypeSessionConfigured }

// MCPInvocation identifies one MCP tool invocation.
type MCPInvocation struct {
	Server    string          `json:"server"`
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// MCPToolCallBeginMsg opens an MCP tool call bracketed by call_id.
type MCPToolCallBeginMsg struct {
	CallID     string        `json:"call_id"`
	Invocation MCPInvocation `json:"invocation"`
}

func (MCPToolCallBeginMsg) MsgType() EventMsgType { return EventTypeMCPToolCallBegin }

// MCPToolCallEndMsg closes the MCP tool call with the same call_id.
type MCPToolCallEndMsg struct {
	CallID     string          `json:"call_id"`
	Invocation MCPInvocation   `json:"invocation"`
	Duration   Duration        `json:"duration"`
	Result     json.RawMessage `json:"result,omitempty"`
}

func (MCPToolCallEndMsg) MsgType() EventMsgType { return EventTypeMCPToolCallEnd }

// ExecCommandBeginMsg opens a command execution bracketed by call_id.
type ExecCommandBeginMsg struct {
	CallID  string   `json:"call_id"`
	Command []string `json:"command"`
	Cwd     string   `json:"cwd"`
}

func (ExecCommandBeginMsg) MsgType() EventMsgType { return EventTypeExecCommandBegin }

// ExecCommandOutputDeltaMsg streams a chunk of command output. Chunk is
// base64-encoded raw bytes.
type ExecCommandOutputDeltaMsg struct {
	CallID string           `json:"call_id"`
	Stream ExecOutputStream `json:"stream"`
	Chunk  string           `json:"chunk"`
}

func (ExecCommandOutputDeltaMsg) MsgType() EventMsgType { return EventTypeExecCommandOutputDelta }

// ExecCommandEndMsg closes a command execution. A non-zero exit code is
// data, not an engine error.
type ExecCommandEndMsg struct {
	CallID   string   `json:"call_id"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
	ExitCode int      `json:"exit_code"`
	Duration Duration `json:"duration"`
}

func (ExecCommandEndMsg) MsgType() EventMsgType { return EventTypeExecCommandEnd }

// ExecApprovalRequestMsg asks the frontend to approve running a command.
// The decision returns out-of-band as an exec_approval submission matched
// by call_id.
type ExecApprovalRequestMsg struct {
	CallID  string   `json:"call_id"`
	Command []string `json:"command"`
	Cwd     string   `json:"cwd"`
	Reason  *string  `json:"reason,omitempty"`
}

func (ExecApprovalRequestMsg) MsgType() EventMsgType { return EventTypeExecApprovalRequest }

// ApplyPatchApprovalRequestMsg asks the frontend to approve applying file
// changes. GrantRoot, when set, additionally requests write access rooted
// at that path for the remainder of the session.
type ApplyPatchApprovalRequestMsg struct {
	CallID    string                `json:"call_id"`
	Changes   map[string]FileChange `json:"changes"`
	Reason    *string               `json:"reason,omitempty"`
	GrantRoot *string               `json:"grant_root,omitempty"`
}

func (ApplyPatchApprovalRequestMsg) MsgType() EventMsgType { return EventTypeApplyPatchApprovalRequest }

// PatchApplyBeginMsg opens a patch application bracketed by call_id.
type PatchApplyBeginMsg struct {
	CallID       string                `json:"call_id"`
	AutoApproved bool                  `json:"auto_approved"`
	Changes      map[string]FileChange `json:"changes"`
}

func (PatchApplyBeginMsg) MsgType() EventMsgType { return EventTypePatchApplyBegin }

// PatchApplyEndMsg closes a patch application. success=false is data, not
// an engine error.
type PatchApplyEndMsg struct {
	CallID  string `json:"call_id"`
	Stdout  string `json:"stdout"`
	Stderr  string `json:"stderr"`
	Success bool   `json:"success"`
}

func (PatchApplyEndMsg) MsgType() EventMsgType { return EventTypePatchApplyEnd }

// TurnDiffMsg carries the aggregated unified diff of the turn's file
// changes so far.
type TurnDiffMsg struct {
	UnifiedDiff string `json:"unified_diff"`
}

func (TurnDiffMsg) MsgType() EventMsgType { return EventTypeTurnDiff }

// BackgroundEventMsg carries an informational note not tied to the
// conversation content.
type BackgroundEventMsg struct {
	Message string `json:"message"`
}

func (BackgroundEventMsg) MsgType() EventMsgType { return EventTypeBackgroundEvent }

// GetHistoryEntryResponseMsg answers a get_history_entry_request
// submission. Entry is nil when the offset is out of range.
type GetHistoryEntryResponseMsg struct {
	Offset int           `json:"offset"`
	LogID  uint64        `json:"log_id"`
	Entry  *HistoryEntry `json:"entry,omitempty"`
}

func (GetHistoryEntryResponseMsg) MsgType() EventMsgType { return EventTypeGetHistoryEntryResponse }

// MCPToolInfo describes one tool exposed by an MCP server.
type MCPToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// MCPListToolsResponseMsg answers a list_mcp_tools submission. Keys are
// fully qualified "server/tool" names.
type MCPListToolsResponseMsg struct {
	Tools map[string]MCPToolInfo `json:"tools"`
}

func (MCPListToolsResponseMsg) MsgType() EventMsgType { return EventTypeMCPListToolsResponse }

// CustomPrompt is one user-defined prompt template.
type CustomPrompt struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ListCustomPromptsResponseMsg answers a list_custom_prompts submission.
type ListCustomPromptsResponseMsg struct {
	CustomPrompts []CustomPrompt `json:"custom_prompts"`
}

func (ListCustomPromptsResponseMsg) MsgType() EventMsgType { return EventTypeListCustomPromptsResponse }

// PlanUpdateMsg replaces the agent's declared plan wholesale.
type PlanUpdateMsg struct {
	Explanation *string    `json:"explanation,omitempty"`
	Plan        []PlanItem `json:"plan"`
}

func (PlanUpdateMsg) MsgType() EventMsgType { return EventTypePlanUpdate }

// ShutdownCompleteMsg acknowledges a shutdown submission; no further events
// follow it.
type ShutdownCompleteMsg struct{}

func (ShutdownCompleteMsg) MsgType() EventMsgType { return EventTypeShutdownComplete }

// UnknownMsg preserves an event whose type this build does not know. The
// schema is open to extension, so unknown types are skipped, not fatal.
type UnknownMsg struct {
	TypeName string
	Payload  json.RawMessage
}

func (m UnknownMsg) MsgType() EventMsgType { return EventMsgType(m.TypeName) }
