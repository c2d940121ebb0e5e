package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaEntry pairs a wire tag with the JSON schema of its payload.
type SchemaEntry struct {
	Type   string          `json:"type"`
	Schema json.RawMessage `json:"schema"`
}

// EventSchema returns a JSON schema entry per EventMsg variant, keyed by
// wire tag. Frontends use it to validate traffic without importing Go
// types.
func EventSchema() []SchemaEntry {
	return []SchemaEntry{
		{Type: string(EventTypeError), Schema: reflectSchema(ErrorMsg{})},
		{Type: string(EventTypeStreamError), Schema: reflectSchema(StreamErrorMsg{})},
		{Type: string(EventTypeTaskStarted), Schema: reflectSchema(TaskStartedMsg{})},
		{Type: string(EventTypeTaskComplete), Schema: reflectSchema(TaskCompleteMsg{})},
		{Type: string(EventTypeTurnAborted), Schema: reflectSchema(TurnAbortedMsg{})},
		{Type: string(EventTypeTokenCount), Schema: reflectSchema(TokenCountMsg{})},
		{Type: string(EventTypeAgentMessage), Schema: reflectSchema(AgentMessageMsg{})},
		{Type: string(EventTypeAgentMessageDelta), Schema: reflectSchema(AgentMessageDeltaMsg{})},
		{Type: string(EventTypeAgentReasoning), Schema: reflectSchema(AgentReasoningMsg{})},
		{Type: string(EventTypeAgentReasoningDelta), Schema: reflectSchema(AgentReasoningDeltaMsg{})},
		{Type: string(EventTypeAgentReasoningRawContent), Schema: reflectSchema(AgentReasoningRawContentMsg{})},
		{Type: string(EventTypeAgentReasoningRawDelta), Schema: reflectSchema(AgentReasoningRawContentDeltaMsg{})},
		{Type: string(EventTypeReasoningSectionBreak), Schema: reflectSchema(AgentReasoningSectionBreakMsg{})},
		{Type: string(EventTypeSessionConfigured), Schema: reflectSchema(SessionConfiguredMsg{})},
		{Type: string(EventTypeMCPToolCallBegin), Schema: reflectSchema(MCPToolCallBeginMsg{})},
		{Type: string(EventTypeMCPToolCallEnd), Schema: reflectSchema(MCPToolCallEndMsg{})},
		{Type: string(EventTypeExecCommandBegin), Schema: reflectSchema(ExecCommandBeginMsg{})},
		{Type: string(EventTypeExecCommandOutputDelta), Schema: reflectSchema(ExecCommandOutputDeltaMsg{})},
		{Type: string(EventTypeExecCommandEnd), Schema: reflectSchema(ExecCommandEndMsg{})},
		{Type: string(EventTypeExecApprovalRequest), Schema: reflectSchema(ExecApprovalRequestMsg{})},
		{Type: string(EventTypeApplyPatchApprovalRequest), Schema: reflectSchema(ApplyPatchApprovalRequestMsg{})},
		{Type: string(EventTypePatchApplyBegin), Schema: reflectSchema(PatchApplyBeginMsg{})},
		{Type: string(EventTypePatchApplyEnd), Schema: reflectSchema(PatchApplyEndMsg{})},
		{Type: string(EventTypeTurnDiff), Schema: reflectSchema(TurnDiffMsg{})},
		{Type: string(EventTypeBackgroundEvent), Schema: reflectSchema(BackgroundEventMsg{})},
		{Type: string(EventTypeGetHistoryEntryResponse), Schema: reflectSchema(GetHistoryEntryResponseMsg{})},
		{Type: string(EventTypeMCPListToolsResponse), Schema: reflectSchema(MCPListToolsResponseMsg{})},
		{Type: string(EventTypeListCustomPromptsResponse), Schema: reflectSchema(ListCustomPromptsResponseMsg{})},
		{Type: string(EventTypePlanUpdate), Schema: reflectSchema(PlanUpdateMsg{})},
		{Type: string(EventTypeShutdownComplete), Schema: reflectSchema(ShutdownCompleteMsg{})},
	}
}

// SubmissionSchema returns a JSON schema entry per Op variant, keyed by
// wire tag.
func SubmissionSchema() []SchemaEntry {
	return []SchemaEntry{
		{Type: string(OpTypeUserInput), Schema: reflectSchema(UserInputOp{})},
		{Type: string(OpTypeInterrupt), Schema: reflectSchema(InterruptOp{})},
		{Type: string(OpTypeExecApproval), Schema: reflectSchema(ExecApprovalOp{})},
		{Type: string(OpTypePatchApproval), Schema: reflectSchema(PatchApprovalOp{})},
		{Type: string(OpTypeAddToHistory), Schema: reflectSchema(AddToHistoryOp{})},
		{Type: string(OpTypeGetHistoryEntryRequest), Schema: reflectSchema(GetHistoryEntryRequestOp{})},
		{Type: string(OpTypeListMCPTools), Schema: reflectSchema(ListMCPToolsOp{})},
		{Type: string(OpTypeListCustomPrompts), Schema: reflectSchema(ListCustomPromptsOp{})},
		{Type: string(OpTypeCompact), Schema: reflectSchema(CompactOp{})},
		{Type: string(OpTypeShutdown), Schema: reflectSchema(ShutdownOp{})},
	}
}

// reflectSchema derives a schema from struct tags with all definitions
// inlined, so each entry stands alone.
func reflectSchema(v any) json.RawMessage {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}

	schema := reflector.Reflect(v)

	data, err := json.Marshal(schema)
	if err != nil {
		// Reflection over our own wire structs cannot fail.
		panic(fmt.Sprintf("failed to generate schema for %T: %v", v, err))
	}
	return json.RawMessage(data)
}
