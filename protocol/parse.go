package protocol

import (
	"encoding/json"
	"fmt"
)

// rawEvent is used for initial discrimination of an event line.
type rawEvent struct {
	ID  string `json:"id"`
	Msg struct {
		Type string `json:"type"`
	} `json:"msg"`
}

// eventEnvelope splits the envelope without touching the payload.
type eventEnvelope struct {
	ID  string          `json:"id"`
	Msg json.RawMessage `json:"msg"`
}

// ParseEvent parses one NDJSON line into a typed Event. Unknown msg.type
// values are not an error: the returned Event carries an UnknownMsg payload
// so the consumer can log and skip it, keeping the stream forward
// compatible. Malformed JSON or a malformed known payload is an error.
func ParseEvent(line []byte) (Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Event{}, fmt.Errorf("failed to parse event envelope: %w", err)
	}
	if len(env.Msg) == 0 {
		return Event{}, fmt.Errorf("event %q has no msg payload", env.ID)
	}

	var raw rawEvent
	if err := json.Unmarshal(line, &raw); err != nil {
		return Event{}, fmt.Errorf("failed to parse event type: %w", err)
	}
	if raw.Msg.Type == "" {
		return Event{}, fmt.Errorf("event %q has no msg.type", env.ID)
	}

	msg, err := parseEventMsg(EventMsgType(raw.Msg.Type), env.Msg)
	if err != nil {
		return Event{}, err
	}
	return Event{ID: env.ID, Msg: msg}, nil
}

// parseEventMsg decodes the payload for a known type, or wraps an unknown
// type in UnknownMsg.
func parseEventMsg(t EventMsgType, payload json.RawMessage) (EventMsg, error) {
	decode := func(v EventMsg) (EventMsg, error) {
		if err := json.Unmarshal(payload, v); err != nil {
			return nil, fmt.Errorf("failed to parse %s event: %w", t, err)
		}
		return v, nil
	}

	switch t {
	case EventTypeError:
		return decode(&ErrorMsg{})
	case EventTypeStreamError:
		return decode(&StreamErrorMsg{})
	case EventTypeTaskStarted:
		return decode(&TaskStartedMsg{})
	case EventTypeTaskComplete:
		return decode(&TaskCompleteMsg{})
	case EventTypeTurnAborted:
		return decode(&TurnAbortedMsg{})
	case EventTypeTokenCount:
		return decode(&TokenCountMsg{})
	case EventTypeAgentMessage:
		return decode(&AgentMessageMsg{})
	case EventTypeAgentMessageDelta:
		return decode(&AgentMessageDeltaMsg{})
	case EventTypeAgentReasoning:
		return decode(&AgentReasoningMsg{})
	case EventTypeAgentReasoningDelta:
		return decode(&AgentReasoningDeltaMsg{})
	case EventTypeAgentReasoningRawContent:
		return decode(&AgentReasoningRawContentMsg{})
	case EventTypeAgentReasoningRawDelta:
		return decode(&AgentReasoningRawContentDeltaMsg{})
	case EventTypeReasoningSectionBreak:
		return decode(&AgentReasoningSectionBreakMsg{})
	case EventTypeSessionConfigured:
		return decode(&SessionConfiguredMsg{})
	case EventTypeMCPToolCallBegin:
		return decode(&MCPToolCallBeginMsg{})
	case EventTypeMCPToolCallEnd:
		return decode(&MCPToolCallEndMsg{})
	case EventTypeExecCommandBegin:
		return decode(&ExecCommandBeginMsg{})
	case EventTypeExecCommandOutputDelta:
		return decode(&ExecCommandOutputDeltaMsg{})
	case EventTypeExecCommandEnd:
		return decode(&ExecCommandEndMsg{})
	case EventTypeExecApprovalRequest:
		return decode(&ExecApprovalRequestMsg{})
	case EventTypeApplyPatchApprovalRequest:
		return decode(&ApplyPatchApprovalRequestMsg{})
	case EventTypePatchApplyBegin:
		return decode(&PatchApplyBeginMsg{})
	case EventTypePatchApplyEnd:
		return decode(&PatchApplyEndMsg{})
	case EventTypeTurnDiff:
		return decode(&TurnDiffMsg{})
	case EventTypeBackgroundEvent:
		return decode(&BackgroundEventMsg{})
	case EventTypeGetHistoryEntryResponse:
		return decode(&GetHistoryEntryResponseMsg{})
	case EventTypeMCPListToolsResponse:
		return decode(&MCPListToolsResponseMsg{})
	case EventTypeListCustomPromptsResponse:
		return decode(&ListCustomPromptsResponseMsg{})
	case EventTypePlanUpdate:
		return decode(&PlanUpdateMsg{})
	case EventTypeShutdownComplete:
		return decode(&ShutdownCompleteMsg{})
	default:
		return UnknownMsg{TypeName: string(t), Payload: append(json.RawMessage(nil), payload...)}, nil
	}
}

// MarshalJSON emits the tagged wire form: the payload object with a type
// field injected.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Msg == nil {
		return nil, fmt.Errorf("event %q has no msg", e.ID)
	}

	var payload []byte
	switch u := e.Msg.(type) {
	case UnknownMsg:
		payload = u.Payload
	case *UnknownMsg:
		payload = u.Payload
	default:
		var err error
		if payload, err = json.Marshal(e.Msg); err != nil {
			return nil, err
		}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("event payload is not an object: %w", err)
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}
	typeTag, _ := json.Marshal(e.Msg.MsgType())
	fields["type"] = typeTag

	msg, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		ID  string          `json:"id"`
		Msg json.RawMessage `json:"msg"`
	}{ID: e.ID, Msg: msg})
}

// UnmarshalJSON is the inverse of MarshalJSON, so Event round-trips through
// encoding/json.
func (e *Event) UnmarshalJSON(data []byte) error {
	ev, err := ParseEvent(data)
	if err != nil {
		return err
	}
	*e = ev
	return nil
}
