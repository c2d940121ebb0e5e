package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SawyerHood/codex/engine"
	"github.com/SawyerHood/codex/protocol"
	"github.com/SawyerHood/codex/sessionlog"
)

var statsCmd = &cobra.Command{
	Use:   "stats <session.ndjson>",
	Short: "Summarize a session: turns, tokens, calls, approvals, plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := sessionlog.LoadFile(args[0])
		if err != nil {
			return err
		}
		r := newRenderer(widthFlag, plainFlag)
		coll := &statsCollector{}
		eng := engine.New(engine.WithLogger(quietLogger()))
		eng.AddObserver(coll)
		sessionlog.Replay(log, eng)

		fmt.Print(renderStats(r, buildStats(eng, coll, log)))
		reportProblems(log.Problems)
		return nil
	},
}

// statsCollector counts what the engine forgets once resolved: closed
// calls and settled approvals.
type statsCollector struct {
	closedByKind map[engine.CallKind]int
	interrupted  int
	toolTime     time.Duration
	approvals    map[engine.ApprovalStatus]int
	diagnostics  int
}

func (s *statsCollector) OnNotification(note engine.Notification) {
	switch v := note.(type) {
	case engine.CallClosed:
		if s.closedByKind == nil {
			s.closedByKind = make(map[engine.CallKind]int)
		}
		s.closedByKind[v.Call.Kind]++
		if v.Call.Forced {
			s.interrupted++
		}
		s.toolTime += v.Outcome.WireDuration
	case engine.ApprovalResolved:
		if s.approvals == nil {
			s.approvals = make(map[engine.ApprovalStatus]int)
		}
		s.approvals[v.Status]++
	case engine.Diagnostic:
		s.diagnostics++
	}
}

// sessionStats is everything the stats command prints.
type sessionStats struct {
	info       engine.SessionInfo
	configured bool
	prompt     string
	wall       time.Duration

	turns   int
	byState map[engine.TurnState]int
	usage   protocol.TokenUsage

	closedByKind map[engine.CallKind]int
	openCalls    int
	interrupted  int
	toolTime     time.Duration

	approvals map[engine.ApprovalStatus]int
	pending   int

	planDone  int
	planTotal int
	hasPlan   bool

	logProblems int
	diagnostics int
}

func buildStats(eng *engine.Engine, coll *statsCollector, log *sessionlog.Log) sessionStats {
	s := sessionStats{
		prompt:       strings.TrimSpace(log.Header.Prompt),
		wall:         wallClock(log.Entries),
		byState:      make(map[engine.TurnState]int),
		closedByKind: coll.closedByKind,
		interrupted:  coll.interrupted,
		toolTime:     coll.toolTime,
		approvals:    coll.approvals,
		logProblems:  len(log.Problems),
		diagnostics:  coll.diagnostics,
	}
	s.info, s.configured = eng.SessionInfo()
	for _, t := range eng.Turns() {
		s.turns++
		s.byState[t.State]++
		s.usage.InputTokens += t.Usage.InputTokens
		s.usage.CachedInputTokens += t.Usage.CachedInputTokens
		s.usage.OutputTokens += t.Usage.OutputTokens
		s.usage.ReasoningOutputTokens += t.Usage.ReasoningOutputTokens
		s.usage.TotalTokens += t.Usage.TotalTokens
		s.openCalls += len(t.OpenCalls)
	}
	s.pending = len(eng.PendingApprovals())
	if plan, ok := eng.Plan(); ok {
		s.hasPlan = true
		s.planTotal = len(plan.Items)
		for _, item := range plan.Items {
			if item.Status == protocol.StepCompleted {
				s.planDone++
			}
		}
	}
	return s
}

// wallClock is the recorded span between the first and last timestamped
// entries. Replay-side clocks are useless here: the engine stamps state
// with apply time, not record time.
func wallClock(entries []sessionlog.Entry) time.Duration {
	var first, last time.Time
	for _, e := range entries {
		t := e.Time()
		if t.IsZero() {
			continue
		}
		if first.IsZero() {
			first = t
		}
		last = t
	}
	if first.IsZero() || !last.After(first) {
		return 0
	}
	return last.Sub(first)
}

func renderStats(r *renderer, s sessionStats) string {
	var b strings.Builder
	put := func(key, value string) {
		if value == "" {
			return
		}
		b.WriteString(r.st.Dim.Render(padRight(key, 11)) + value + "\n")
	}

	if s.configured {
		v := s.info.SessionID
		if s.info.Model != "" {
			v += " (" + s.info.Model + ")"
		}
		put("session", v)
	}
	if s.prompt != "" {
		w := r.width - 11
		if w < 16 {
			w = 16
		}
		put("prompt", truncate(s.prompt, w))
	}
	if s.wall > 0 {
		put("wall clock", formatDuration(s.wall))
	}
	put("turns", turnsValue(s))
	put("tokens", tokensValue(s.usage))
	put("calls", callsValue(s))
	put("approvals", approvalsValue(s))
	if s.hasPlan {
		put("plan", fmt.Sprintf("%d/%d step(s) completed", s.planDone, s.planTotal))
	}
	if s.logProblems > 0 || s.diagnostics > 0 {
		put("problems", fmt.Sprintf("%d malformed log line(s), %d protocol diagnostic(s)",
			s.logProblems, s.diagnostics))
	}
	return b.String()
}

func turnsValue(s sessionStats) string {
	if s.turns == 0 {
		return "none"
	}
	parts := make([]string, 0, len(s.byState))
	for _, state := range []engine.TurnState{
		engine.StateCompleted, engine.StateAborted, engine.StateErrored,
		engine.StateStreaming, engine.StateStarted,
	} {
		if c := s.byState[state]; c > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c, state))
		}
	}
	return fmt.Sprintf("%d (%s)", s.turns, strings.Join(parts, ", "))
}

func tokensValue(u protocol.TokenUsage) string {
	if u.TotalTokens == 0 {
		return ""
	}
	v := fmt.Sprintf("in:%s out:%s total:%s",
		formatTokens(u.InputTokens), formatTokens(u.OutputTokens), formatTokens(u.TotalTokens))
	if u.CachedInputTokens > 0 {
		v += fmt.Sprintf(" (cached %s)", formatTokens(u.CachedInputTokens))
	}
	if u.ReasoningOutputTokens > 0 {
		v += fmt.Sprintf(" (reasoning %s)", formatTokens(u.ReasoningOutputTokens))
	}
	return v
}

func callsValue(s sessionStats) string {
	total := s.openCalls
	for _, c := range s.closedByKind {
		total += c
	}
	if total == 0 {
		return ""
	}
	parts := make([]string, 0, 4)
	for _, kind := range []engine.CallKind{
		engine.CallKindExec, engine.CallKindMCPTool, engine.CallKindPatchApply,
	} {
		if c := s.closedByKind[kind]; c > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c, kind))
		}
	}
	if s.openCalls > 0 {
		parts = append(parts, fmt.Sprintf("%d open", s.openCalls))
	}
	v := fmt.Sprintf("%d (%s)", total, strings.Join(parts, ", "))
	if s.interrupted > 0 {
		v += fmt.Sprintf(", %d interrupted", s.interrupted)
	}
	if s.toolTime > 0 {
		v += ", " + formatDuration(s.toolTime) + " in tools"
	}
	return v
}

func approvalsValue(s sessionStats) string {
	total := s.pending
	for _, c := range s.approvals {
		total += c
	}
	if total == 0 {
		return ""
	}
	parts := make([]string, 0, 5)
	for _, status := range []engine.ApprovalStatus{
		engine.ApprovalApproved, engine.ApprovalDenied,
		engine.ApprovalCancelled, engine.ApprovalTimedOut,
	} {
		if c := s.approvals[status]; c > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c, status))
		}
	}
	if s.pending > 0 {
		parts = append(parts, fmt.Sprintf("%d pending", s.pending))
	}
	return fmt.Sprintf("%d (%s)", total, strings.Join(parts, ", "))
}
