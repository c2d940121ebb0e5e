package protocol

import (
	"encoding/json"
	"testing"
)

func TestParseEvent_KnownVariants(t *testing.T) {
	tests := []struct {
		name string
		line string
		want EventMsgType
	}{
		{
			name: "task_started",
			line: `{"id":"t1","msg":{"type":"task_started","model_context_window":272000}}`,
			want: EventTypeTaskStarted,
		},
		{
			name: "agent_message_delta",
			line: `{"id":"t1","msg":{"type":"agent_message_delta","delta":"Hel"}}`,
			want: EventTypeAgentMessageDelta,
		},
		{
			name: "exec_command_begin",
			line: `{"id":"t1","msg":{"type":"exec_command_begin","call_id":"c1","command":["ls","-la"],"cwd":"/tmp"}}`,
			want: EventTypeExecCommandBegin,
		},
		{
			name: "exec_command_end",
			line: `{"id":"t1","msg":{"type":"exec_command_end","call_id":"c1","stdout":"ok","stderr":"","exit_code":0,"duration":{"secs":1,"nanos":250000000}}}`,
			want: EventTypeExecCommandEnd,
		},
		{
			name: "turn_aborted",
			line: `{"id":"t1","msg":{"type":"turn_aborted","reason":"interrupted"}}`,
			want: EventTypeTurnAborted,
		},
		{
			name: "plan_update",
			line: `{"id":"t1","msg":{"type":"plan_update","plan":[{"step":"read code","status":"completed"},{"step":"write fix","status":"in_progress"}]}}`,
			want: EventTypePlanUpdate,
		},
		{
			name: "session_configured",
			line: `{"id":"0","msg":{"type":"session_configured","session_id":"s-1","model":"gpt-5","history_log_id":7,"history_entry_count":42}}`,
			want: EventTypeSessionConfigured,
		},
		{
			name: "token_count",
			line: `{"id":"t1","msg":{"type":"token_count","input_tokens":100,"output_tokens":40,"total_tokens":140}}`,
			want: EventTypeTokenCount,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tc.line))
			if err != nil {
				t.Fatalf("ParseEvent() error = %v", err)
			}
			if got := ev.Msg.MsgType(); got != tc.want {
				t.Fatalf("MsgType() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseEvent_PayloadFields(t *testing.T) {
	line := `{"id":"t3","msg":{"type":"exec_command_end","call_id":"c9","stdout":"hi","stderr":"boom","exit_code":2,"duration":{"secs":0,"nanos":500000000}}}`
	ev, err := ParseEvent([]byte(line))
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	if ev.ID != "t3" {
		t.Fatalf("ID = %q, want %q", ev.ID, "t3")
	}
	end, ok := ev.Msg.(*ExecCommandEndMsg)
	if !ok {
		t.Fatalf("Msg type = %T, want *ExecCommandEndMsg", ev.Msg)
	}
	if end.CallID != "c9" {
		t.Fatalf("CallID = %q, want %q", end.CallID, "c9")
	}
	if end.ExitCode != 2 {
		t.Fatalf("ExitCode = %d, want 2", end.ExitCode)
	}
	if got := end.Duration.Milliseconds(); got != 500 {
		t.Fatalf("Duration.Milliseconds() = %d, want 500", got)
	}
}

func TestParseEvent_UnknownTypeIsNotAnError(t *testing.T) {
	line := `{"id":"t1","msg":{"type":"quantum_flux","intensity":11}}`
	ev, err := ParseEvent([]byte(line))
	if err != nil {
		t.Fatalf("ParseEvent() error = %v, want nil for unknown type", err)
	}
	unknown, ok := ev.Msg.(UnknownMsg)
	if !ok {
		t.Fatalf("Msg type = %T, want UnknownMsg", ev.Msg)
	}
	if unknown.TypeName != "quantum_flux" {
		t.Fatalf("TypeName = %q, want %q", unknown.TypeName, "quantum_flux")
	}
	if len(unknown.Payload) == 0 {
		t.Fatal("Payload is empty, want raw msg preserved")
	}
}

func TestParseEvent_Malformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "bad json", line: `{not json`},
		{name: "missing msg", line: `{"id":"t1"}`},
		{name: "missing type", line: `{"id":"t1","msg":{"delta":"x"}}`},
		{name: "payload type mismatch", line: `{"id":"t1","msg":{"type":"exec_command_begin","command":"not-an-array"}}`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseEvent([]byte(tc.line)); err == nil {
				t.Fatal("ParseEvent() error = nil, want error")
			}
		})
	}
}

func TestEvent_MarshalRoundTrip(t *testing.T) {
	reason := "wants network access"
	original := Event{
		ID: "t5",
		Msg: &ExecApprovalRequestMsg{
			CallID:  "c2",
			Command: []string{"curl", "https://example.com"},
			Cwd:     "/work",
			Reason:  &reason,
		},
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded Event
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	req, ok := decoded.Msg.(*ExecApprovalRequestMsg)
	if !ok {
		t.Fatalf("Msg type = %T, want *ExecApprovalRequestMsg", decoded.Msg)
	}
	if req.CallID != "c2" {
		t.Fatalf("CallID = %q, want %q", req.CallID, "c2")
	}
	if req.Reason == nil || *req.Reason != reason {
		t.Fatalf("Reason = %v, want %q", req.Reason, reason)
	}
	if len(req.Command) != 2 || req.Command[0] != "curl" {
		t.Fatalf("Command = %v, want [curl https://example.com]", req.Command)
	}
}

func TestEvent_MarshalUnknownPreservesPayload(t *testing.T) {
	line := `{"id":"t1","msg":{"type":"quantum_flux","intensity":11}}`
	ev, err := ParseEvent([]byte(line))
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var out struct {
		Msg struct {
			Type      string `json:"type"`
			Intensity int    `json:"intensity"`
		} `json:"msg"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out.Msg.Type != "quantum_flux" {
		t.Fatalf("type = %q, want %q", out.Msg.Type, "quantum_flux")
	}
	if out.Msg.Intensity != 11 {
		t.Fatalf("intensity = %d, want 11", out.Msg.Intensity)
	}
}
