package protocol

import (
	"encoding/json"
	"fmt"
)

// OpType is the wire discriminant of an Op, carried in op.type.
type OpType string

const (
	OpTypeUserInput              OpType = "user_input"
	OpTypeInterrupt              OpType = "interrupt"
	OpTypeExecApproval           OpType = "exec_approval"
	OpTypePatchApproval          OpType = "patch_approval"
	OpTypeAddToHistory           OpType = "add_to_history"
	OpTypeGetHistoryEntryRequest OpType = "get_history_entry_request"
	OpTypeListMCPTools           OpType = "list_mcp_tools"
	OpTypeListCustomPrompts      OpType = "list_custom_prompts"
	OpTypeCompact                OpType = "compact"
	OpTypeShutdown               OpType = "shutdown"
)

// Op is the closed union of submission payloads.
type Op interface {
	OpType() OpType
}

// Submission is the envelope for every frontend→backend line. ID names the
// turn the backend will run for this op; approval decisions reference the
// request's call_id inside the op instead.
// Example: {"id":"3","op":{"type":"user_input","items":[{"type":"text","text":"hi"}]}}
type Submission struct {
	ID string `json:"id"`
	Op Op     `json:"op"`
}

// UserInputOp starts (or queues) a turn with the given input items.
type UserInputOp struct {
	Items []InputItem `json:"items"`
}

func (UserInputOp) OpType() OpType { return OpTypeUserInput }

// InterruptOp asks the backend to abort the current turn.
type InterruptOp struct{}

func (InterruptOp) OpType() OpType { return OpTypeInterrupt }

// ExecApprovalOp answers an exec_approval_request. ID is the request's
// call_id.
type ExecApprovalOp struct {
	ID       string         `json:"id"`
	Decision ReviewDecision `json:"decision"`
}

func (ExecApprovalOp) OpType() OpType { return OpTypeExecApproval }

// PatchApprovalOp answers an apply_patch_approval_request. ID is the
// request's call_id.
type PatchApprovalOp struct {
	ID       string         `json:"id"`
	Decision ReviewDecision `json:"decision"`
}

func (PatchApprovalOp) OpType() OpType { return OpTypePatchApproval }

// AddToHistoryOp appends text to the cross-session message history.
type AddToHistoryOp struct {
	Text string `json:"text"`
}

func (AddToHistoryOp) OpType() OpType { return OpTypeAddToHistory }

// GetHistoryEntryRequestOp fetches one history entry by position; answered
// by a get_history_entry_response event.
type GetHistoryEntryRequestOp struct {
	Offset int    `json:"offset"`
	LogID  uint64 `json:"log_id"`
}

func (GetHistoryEntryRequestOp) OpType() OpType { return OpTypeGetHistoryEntryRequest }

// ListMCPToolsOp requests the set of configured MCP tools.
type ListMCPToolsOp struct{}

func (ListMCPToolsOp) OpType() OpType { return OpTypeListMCPTools }

// ListCustomPromptsOp requests the set of user-defined prompts.
type ListCustomPromptsOp struct{}

func (ListCustomPromptsOp) OpType() OpType { return OpTypeListCustomPrompts }

// CompactOp asks the backend to summarize the conversation in place.
type CompactOp struct{}

func (CompactOp) OpType() OpType { return OpTypeCompact }

// ShutdownOp asks the backend to exit cleanly; acknowledged by
// shutdown_complete.
type ShutdownOp struct{}

func (ShutdownOp) OpType() OpType { return OpTypeShutdown }

// MarshalJSON emits the tagged wire form of the submission.
func (s Submission) MarshalJSON() ([]byte, error) {
	if s.Op == nil {
		return nil, fmt.Errorf("submission %q has no op", s.ID)
	}

	payload, err := json.Marshal(s.Op)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("op payload is not an object: %w", err)
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}
	typeTag, _ := json.Marshal(s.Op.OpType())
	fields["type"] = typeTag

	op, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		ID string          `json:"id"`
		Op json.RawMessage `json:"op"`
	}{ID: s.ID, Op: op})
}

// UnmarshalJSON decodes the tagged wire form.
func (s *Submission) UnmarshalJSON(data []byte) error {
	sub, err := ParseSubmission(data)
	if err != nil {
		return err
	}
	*s = sub
	return nil
}

// ParseSubmission parses one NDJSON line into a typed Submission. Unlike
// events, submissions are produced by this side of the stream, so an
// unknown op type is an error rather than a skip.
func ParseSubmission(line []byte) (Submission, error) {
	var env struct {
		ID string          `json:"id"`
		Op json.RawMessage `json:"op"`
	}
	if err := json.Unmarshal(line, &env); err != nil {
		return Submission{}, fmt.Errorf("failed to parse submission envelope: %w", err)
	}
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(env.Op, &tag); err != nil {
		return Submission{}, fmt.Errorf("failed to parse op type: %w", err)
	}

	decode := func(v Op) (Submission, error) {
		if err := json.Unmarshal(env.Op, v); err != nil {
			return Submission{}, fmt.Errorf("failed to parse %s op: %w", tag.Type, err)
		}
		return Submission{ID: env.ID, Op: v}, nil
	}

	switch OpType(tag.Type) {
	case OpTypeUserInput:
		return decode(&UserInputOp{})
	case OpTypeInterrupt:
		return decode(&InterruptOp{})
	case OpTypeExecApproval:
		return decode(&ExecApprovalOp{})
	case OpTypePatchApproval:
		return decode(&PatchApprovalOp{})
	case OpTypeAddToHistory:
		return decode(&AddToHistoryOp{})
	case OpTypeGetHistoryEntryRequest:
		return decode(&GetHistoryEntryRequestOp{})
	case OpTypeListMCPTools:
		return decode(&ListMCPToolsOp{})
	case OpTypeListCustomPrompts:
		return decode(&ListCustomPromptsOp{})
	case OpTypeCompact:
		return decode(&CompactOp{})
	case OpTypeShutdown:
		return decode(&ShutdownOp{})
	default:
		return Submission{}, fmt.Errorf("unknown op type: %s", tag.Type)
	}
}
