package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration is the wire representation of a time span.
// Example: {"secs":1,"nanos":500000000}
type Duration struct {
	Secs  int64 `json:"secs"`
	Nanos int32 `json:"nanos"`
}

// Go converts the wire duration to a time.Duration.
func (d Duration) Go() time.Duration {
	return time.Duration(d.Secs)*time.Second + time.Duration(d.Nanos)*time.Nanosecond
}

// Milliseconds returns the duration in whole milliseconds.
func (d Duration) Milliseconds() int64 {
	return d.Secs*1000 + int64(d.Nanos)/1000000
}

// DurationFrom converts a time.Duration to its wire representation.
func DurationFrom(d time.Duration) Duration {
	return Duration{
		Secs:  int64(d / time.Second),
		Nanos: int32(d % time.Second),
	}
}

// TokenUsage reports accumulated token counts for a turn. Counts are
// cumulative and non-decreasing within a turn. TotalTokens normally equals
// InputTokens + OutputTokens, but consumers treat that as advisory.
type TokenUsage struct {
	InputTokens           int64 `json:"input_tokens"`
	CachedInputTokens     int64 `json:"cached_input_tokens,omitempty"`
	OutputTokens          int64 `json:"output_tokens"`
	ReasoningOutputTokens int64 `json:"reasoning_output_tokens,omitempty"`
	TotalTokens           int64 `json:"total_tokens"`
}

// ExecOutputStream identifies which output stream an exec chunk belongs to.
type ExecOutputStream string

const (
	ExecOutputStdout ExecOutputStream = "stdout"
	ExecOutputStderr ExecOutputStream = "stderr"
)

// FileChangeKind discriminates FileChange variants.
type FileChangeKind string

const (
	FileChangeAdd    FileChangeKind = "add"
	FileChangeDelete FileChangeKind = "delete"
	FileChangeUpdate FileChangeKind = "update"
)

// FileChange is one proposed change to a file within a patch. On the wire it
// is externally tagged by kind:
//
//	{"add":{"content":"..."}}
//	{"delete":{}}
//	{"update":{"unified_diff":"...","move_path":"..."}}
type FileChange struct {
	kind FileChangeKind

	// Content is the full new file content for add changes.
	Content string
	// UnifiedDiff is the diff body for update changes.
	UnifiedDiff string
	// MovePath is the optional rename target for update changes.
	MovePath string
}

// AddChange constructs an add FileChange.
func AddChange(content string) FileChange {
	return FileChange{kind: FileChangeAdd, Content: content}
}

// DeleteChange constructs a delete FileChange.
func DeleteChange() FileChange {
	return FileChange{kind: FileChangeDelete}
}

// UpdateChange constructs an update FileChange. movePath may be empty.
func UpdateChange(unifiedDiff, movePath string) FileChange {
	return FileChange{kind: FileChangeUpdate, UnifiedDiff: unifiedDiff, MovePath: movePath}
}

// Kind returns the change kind.
func (c FileChange) Kind() FileChangeKind { return c.kind }

type addChangeBody struct {
	Content string `json:"content"`
}

type updateChangeBody struct {
	UnifiedDiff string  `json:"unified_diff"`
	MovePath    *string `json:"move_path,omitempty"`
}

// MarshalJSON encodes the externally tagged form.
func (c FileChange) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case FileChangeAdd:
		return json.Marshal(map[string]addChangeBody{"add": {Content: c.Content}})
	case FileChangeDelete:
		return json.Marshal(map[string]struct{}{"delete": {}})
	case FileChangeUpdate:
		body := updateChangeBody{UnifiedDiff: c.UnifiedDiff}
		if c.MovePath != "" {
			body.MovePath = &c.MovePath
		}
		return json.Marshal(map[string]updateChangeBody{"update": body})
	default:
		return nil, fmt.Errorf("file change has no kind")
	}
}

// UnmarshalJSON decodes the externally tagged form.
func (c *FileChange) UnmarshalJSON(data []byte) error {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("failed to parse file change: %w", err)
	}

	if raw, ok := tagged["add"]; ok {
		var body addChangeBody
		if err := json.Unmarshal(raw, &body); err != nil {
			return fmt.Errorf("failed to parse add change: %w", err)
		}
		*c = FileChange{kind: FileChangeAdd, Content: body.Content}
		return nil
	}
	if _, ok := tagged["delete"]; ok {
		*c = FileChange{kind: FileChangeDelete}
		return nil
	}
	if raw, ok := tagged["update"]; ok {
		var body updateChangeBody
		if err := json.Unmarshal(raw, &body); err != nil {
			return fmt.Errorf("failed to parse update change: %w", err)
		}
		*c = FileChange{kind: FileChangeUpdate, UnifiedDiff: body.UnifiedDiff}
		if body.MovePath != nil {
			c.MovePath = *body.MovePath
		}
		return nil
	}
	return fmt.Errorf("unknown file change variant")
}

// StepStatus is the state of one plan step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
)

// PlanItem is one step in the agent's declared plan.
type PlanItem struct {
	Step   string     `json:"step"`
	Status StepStatus `json:"status"`
}

// HistoryEntry is one line of the cross-session message history.
type HistoryEntry struct {
	SessionID string `json:"session_id"`
	Ts        int64  `json:"ts"`
	Text      string `json:"text"`
}

// ReviewDecision is the outcome of an approval request, sent back to the
// backend as an exec_approval or patch_approval submission.
type ReviewDecision string

const (
	// ReviewApproved allows the single requested action.
	ReviewApproved ReviewDecision = "approved"

	// ReviewApprovedForSession allows the action and suppresses further
	// prompts for equivalent actions this session.
	ReviewApprovedForSession ReviewDecision = "approved_for_session"

	// ReviewDenied rejects the action; the turn continues.
	ReviewDenied ReviewDecision = "denied"

	// ReviewAbort rejects the action and asks the backend to stop the turn.
	ReviewAbort ReviewDecision = "abort"
)

// InputItemType discriminates user input items.
type InputItemType string

const (
	InputItemText  InputItemType = "text"
	InputItemImage InputItemType = "image"
)

// InputItem is one element of a user_input submission.
// Example: {"type":"text","text":"fix the build"}
type InputItem struct {
	Type     InputItemType `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL string        `json:"image_url,omitempty"`
}

// TextInput constructs a text input item.
func TextInput(text string) InputItem {
	return InputItem{Type: InputItemText, Text: text}
}
