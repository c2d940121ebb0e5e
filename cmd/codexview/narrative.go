package main

import (
	"fmt"
	"strings"

	"github.com/SawyerHood/codex/engine"
	"github.com/SawyerHood/codex/protocol"
)

// lineKind classifies narrative lines for styling.
type lineKind int

const (
	lineHeader lineKind = iota
	lineText
	lineReasoning
	lineTool
	lineStatus
	lineWarn
	lineError
)

// outputLine is one styled line (or markdown block) of the narrative.
type outputLine struct {
	kind lineKind
	text string
}

// narrative folds engine notifications into a human-readable account of
// the session, in the order the events folded in.
type narrative struct {
	lines []outputLine
}

func (n *narrative) OnNotification(note engine.Notification) {
	switch v := note.(type) {
	case engine.SessionConfigured:
		n.add(lineStatus, sessionLine(v.Info))
	case engine.TurnStarted:
		n.add(lineHeader, "turn "+v.TurnID)
	case engine.StreamFinal:
		switch v.Kind {
		case engine.StreamAgentMessage:
			n.add(lineText, v.Text)
		case engine.StreamAgentReasoning:
			n.add(lineReasoning, v.Text)
		}
		// Raw reasoning duplicates the summarized stream; not narrated.
	case engine.CallClosed:
		n.addCall(v)
	case engine.ApprovalRequested:
		text := "approval wanted: " + approvalLabel(v.Request)
		if v.Request.Reason != "" {
			text += " (" + v.Request.Reason + ")"
		}
		n.add(lineStatus, text)
	case engine.ApprovalResolved:
		n.add(lineStatus, fmt.Sprintf("approval %s: %s", v.Request.CallID, v.Status))
	case engine.PlanUpdated:
		n.addPlan(v.Plan)
	case engine.TurnDiff:
		n.add(lineStatus, fmt.Sprintf("turn diff: %d line(s)", lineCount(v.UnifiedDiff)))
	case engine.BackgroundNote:
		n.add(lineStatus, "note: "+v.Message)
	case engine.HistoryEntryFetched:
		n.add(lineStatus, historyLine(v))
	case engine.ToolListUpdated:
		n.add(lineStatus, fmt.Sprintf("%d MCP tool(s) available", len(v.Tools)))
	case engine.PromptListUpdated:
		n.add(lineStatus, fmt.Sprintf("%d custom prompt(s) available", len(v.Prompts)))
	case engine.TurnErrored:
		n.add(lineError, "error: "+v.Message)
	case engine.TurnFinished:
		n.addTurnEnd(v.Turn)
	case engine.Diagnostic:
		text := "protocol: " + v.Message
		if v.Err != nil {
			text += ": " + v.Err.Error()
		}
		n.add(lineWarn, text)
	case engine.StreamClosed:
		n.add(lineStatus, "stream closed")
	case engine.ShutdownComplete:
		n.add(lineStatus, "shutdown acknowledged")
	}
}

func (n *narrative) add(kind lineKind, text string) {
	n.lines = append(n.lines, outputLine{kind: kind, text: text})
}

func (n *narrative) addCall(v engine.CallClosed) {
	label := callLabel(v.Call.PendingCall)
	if v.Call.Forced {
		n.add(lineTool, label+" [interrupted]")
		return
	}
	if d := v.Outcome.WireDuration; d > 0 {
		label += " [" + formatDuration(d) + "]"
	}
	n.add(lineTool, label)
	switch {
	case v.Call.Kind == engine.CallKindExec && v.Outcome.ExitCode != 0:
		n.add(lineError, fmt.Sprintf("exit %d: %s", v.Outcome.ExitCode, firstLine(v.Outcome.Stderr)))
	case v.Call.Kind == engine.CallKindPatchApply && !v.Outcome.Success:
		n.add(lineError, "patch failed: "+firstLine(v.Outcome.Stderr))
	}
}

func (n *narrative) addPlan(p engine.PlanSnapshot) {
	if p.Explanation != "" {
		n.add(lineStatus, "plan: "+firstLine(p.Explanation))
	} else {
		n.add(lineStatus, "plan:")
	}
	for _, item := range p.Items {
		n.add(lineStatus, "  "+planCheckbox(item.Status)+" "+item.Step)
	}
	for _, issue := range p.Issues {
		n.add(lineWarn, "  plan issue: "+issue)
	}
}

func (n *narrative) addTurnEnd(t engine.TurnRecord) {
	var b strings.Builder
	fmt.Fprintf(&b, "turn %s %s", t.ID, t.State)
	if t.State == engine.StateAborted && t.AbortReason != "" {
		fmt.Fprintf(&b, " (%s)", t.AbortReason)
	}
	if t.Usage.TotalTokens > 0 {
		fmt.Fprintf(&b, ", tokens in:%s out:%s",
			formatTokens(t.Usage.InputTokens), formatTokens(t.Usage.OutputTokens))
	}
	n.add(lineStatus, b.String())
}

// drain hands back everything collected so far and resets the buffer,
// for incremental printing while following a live log.
func (n *narrative) drain() []outputLine {
	out := n.lines
	n.lines = nil
	return out
}

// render lays every collected line out with r.
func (n *narrative) render(r *renderer) string {
	var b strings.Builder
	for _, line := range n.lines {
		b.WriteString(r.renderLine(line))
	}
	return b.String()
}

// renderLine styles one narrative line. Agent text goes through the
// markdown renderer; everything else renders verbatim with its style.
func (r *renderer) renderLine(line outputLine) string {
	switch line.kind {
	case lineHeader:
		return "\n" + r.st.Header.Render(line.text) + "\n"
	case lineText:
		return r.renderMarkdown(line.text)
	case lineReasoning:
		return r.st.Reasoning.Render(line.text) + "\n"
	case lineTool:
		return r.st.Tool.Render(line.text) + "\n"
	case lineWarn:
		return r.st.Warn.Render(line.text) + "\n"
	case lineError:
		return r.st.Bad.Render(line.text) + "\n"
	default:
		return r.st.Dim.Render(line.text) + "\n"
	}
}

func sessionLine(info engine.SessionInfo) string {
	s := "session " + info.SessionID
	if info.Model != "" {
		s += " (" + info.Model + ")"
	}
	if info.HistoryEntryCount > 0 {
		s += fmt.Sprintf(", %d history entries", info.HistoryEntryCount)
	}
	return s
}

func historyLine(v engine.HistoryEntryFetched) string {
	if v.Entry == nil {
		return fmt.Sprintf("history[%d] offset %d: no entry", v.LogID, v.Offset)
	}
	return fmt.Sprintf("history[%d] offset %d: %s", v.LogID, v.Offset, firstLine(v.Entry.Text))
}

func planCheckbox(s protocol.StepStatus) string {
	switch s {
	case protocol.StepCompleted:
		return "[x]"
	case protocol.StepInProgress:
		return "[~]"
	default:
		return "[ ]"
	}
}

func lineCount(s string) int {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
