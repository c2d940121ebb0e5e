package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SawyerHood/codex/engine"
	"github.com/SawyerHood/codex/sessionlog"
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript <session.ndjson>",
	Short: "Render a recorded session as a readable transcript",
	Long: `Transcript replays a recorded session through the correlation engine
and prints what the agent did: messages, reasoning, tool calls,
approvals, plan updates, and how each turn ended.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := sessionlog.LoadFile(args[0])
		if err != nil {
			return err
		}
		r := newRenderer(widthFlag, plainFlag)
		nar := &narrative{}
		eng := engine.New(engine.WithLogger(quietLogger()))
		eng.AddObserver(nar)
		sessionlog.Replay(log, eng)

		fmt.Print(renderPreamble(r, log))
		fmt.Print(nar.render(r))
		fmt.Print(renderLoose(r, eng))
		reportProblems(log.Problems)
		return nil
	},
}

// renderPreamble prints the recorded prompt and configuration summary.
func renderPreamble(r *renderer, log *sessionlog.Log) string {
	var b strings.Builder
	if p := strings.TrimSpace(log.Header.Prompt); p != "" {
		b.WriteString(r.st.Header.Render("prompt") + " " + p + "\n")
	}
	if len(log.Header.Config) > 0 {
		keys := make([]string, 0, len(log.Header.Config))
		for k := range log.Header.Config {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+log.Header.Config[k])
		}
		b.WriteString(r.st.Dim.Render(strings.Join(parts, " ")) + "\n")
	}
	return b.String()
}

// renderLoose reports state still open when the recording stopped:
// a live turn, running calls, undecided approvals.
func renderLoose(r *renderer, eng *engine.Engine) string {
	id, ok := eng.ActiveTurnID()
	if !ok {
		return ""
	}
	snap, ok := eng.Turn(id)
	if !ok || snap.State.IsTerminal() {
		return ""
	}
	var b strings.Builder
	b.WriteString(r.st.Warn.Render(
		fmt.Sprintf("turn %s was still %s when the recording stopped", id, snap.State)) + "\n")
	for _, c := range snap.OpenCalls {
		b.WriteString(r.st.Warn.Render("  still running: "+callLabel(c)) + "\n")
	}
	for _, a := range snap.PendingApprovals {
		b.WriteString(r.st.Warn.Render("  still awaiting approval: "+approvalLabel(a)) + "\n")
	}
	return b.String()
}
