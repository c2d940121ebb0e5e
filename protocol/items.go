package protocol

import (
	"encoding/json"
	"fmt"
)

// ResponseItemType discriminates transcript items.
type ResponseItemType string

const (
	ItemTypeMessage            ResponseItemType = "message"
	ItemTypeReasoning          ResponseItemType = "reasoning"
	ItemTypeFunctionCall       ResponseItemType = "function_call"
	ItemTypeFunctionCallOutput ResponseItemType = "function_call_output"
	ItemTypeLocalShellCall     ResponseItemType = "local_shell_call"
	ItemTypeWebSearchCall      ResponseItemType = "web_search_call"
)

// ResponseItem is one entry of the canonical conversation transcript. The
// concrete type is discriminated by the wire type field.
type ResponseItem interface {
	ItemType() ResponseItemType
}

// ContentItem is one piece of message content.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// MessageItem is a user or assistant message.
type MessageItem struct {
	Role    string        `json:"role"`
	Content []ContentItem `json:"content"`
}

func (MessageItem) ItemType() ResponseItemType { return ItemTypeMessage }

// Text joins the textual content pieces of the message.
func (m MessageItem) Text() string {
	var out string
	for _, c := range m.Content {
		out += c.Text
	}
	return out
}

// ReasoningItem is a reasoning summary block.
type ReasoningItem struct {
	ID      string        `json:"id,omitempty"`
	Summary []ContentItem `json:"summary"`
}

func (ReasoningItem) ItemType() ResponseItemType { return ItemTypeReasoning }

// FunctionCallItem records a tool invocation. CallID correlates to the
// eventual FunctionCallOutputItem.
type FunctionCallItem struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	CallID    string `json:"call_id"`
}

func (FunctionCallItem) ItemType() ResponseItemType { return ItemTypeFunctionCall }

// FunctionCallOutputItem records a tool result for an earlier call.
type FunctionCallOutputItem struct {
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

func (FunctionCallOutputItem) ItemType() ResponseItemType { return ItemTypeFunctionCallOutput }

// LocalShellCallItem records a shell invocation performed by the backend.
type LocalShellCallItem struct {
	CallID string          `json:"call_id,omitempty"`
	Status string          `json:"status"`
	Action json.RawMessage `json:"action"`
}

func (LocalShellCallItem) ItemType() ResponseItemType { return ItemTypeLocalShellCall }

// WebSearchCallItem records a web search performed by the backend.
type WebSearchCallItem struct {
	ID     string          `json:"id,omitempty"`
	Status string          `json:"status,omitempty"`
	Action json.RawMessage `json:"action,omitempty"`
}

func (WebSearchCallItem) ItemType() ResponseItemType { return ItemTypeWebSearchCall }

// OtherItem preserves a transcript entry whose type this build does not
// know, keeping reconstruction lossless under schema extension.
type OtherItem struct {
	TypeName string
	Payload  json.RawMessage
}

func (o OtherItem) ItemType() ResponseItemType { return ResponseItemType(o.TypeName) }

// ParseResponseItem parses one transcript entry. Unknown types are
// preserved as OtherItem, mirroring the event stream's open-schema policy.
func ParseResponseItem(data []byte) (ResponseItem, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("failed to parse response item type: %w", err)
	}

	decode := func(v ResponseItem) (ResponseItem, error) {
		if err := json.Unmarshal(data, v); err != nil {
			return nil, fmt.Errorf("failed to parse %s item: %w", tag.Type, err)
		}
		return v, nil
	}

	switch ResponseItemType(tag.Type) {
	case ItemTypeMessage:
		return decode(&MessageItem{})
	case ItemTypeReasoning:
		return decode(&ReasoningItem{})
	case ItemTypeFunctionCall:
		return decode(&FunctionCallItem{})
	case ItemTypeFunctionCallOutput:
		return decode(&FunctionCallOutputItem{})
	case ItemTypeLocalShellCall:
		return decode(&LocalShellCallItem{})
	case ItemTypeWebSearchCall:
		return decode(&WebSearchCallItem{})
	default:
		return OtherItem{TypeName: tag.Type, Payload: append(json.RawMessage(nil), data...)}, nil
	}
}
