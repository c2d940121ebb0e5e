package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SawyerHood/codex/engine"
	"github.com/SawyerHood/codex/sessionlog"
)

var callsCmd = &cobra.Command{
	Use:   "calls <session.ndjson>",
	Short: "Tabulate every exec, MCP tool, and patch call in a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := sessionlog.LoadFile(args[0])
		if err != nil {
			return err
		}
		r := newRenderer(widthFlag, plainFlag)
		coll := &callLog{}
		eng := engine.New(engine.WithLogger(quietLogger()))
		eng.AddObserver(coll)
		sessionlog.Replay(log, eng)

		rows := coll.rows
		for _, t := range eng.Turns() {
			for _, c := range t.OpenCalls {
				rows = append(rows, callRow{
					turn:   c.TurnID,
					id:     c.CallID,
					kind:   string(c.Kind),
					status: "open",
					took:   "-",
					title:  callTitle(c),
				})
			}
		}
		if len(rows) == 0 {
			fmt.Println("no calls recorded")
			reportProblems(log.Problems)
			return nil
		}

		cells := make([][]string, len(rows))
		for i, row := range rows {
			cells[i] = []string{row.turn, row.id, row.kind, row.status, row.took, row.title}
		}
		fmt.Print(r.renderTable([]string{"TURN", "CALL", "KIND", "STATUS", "TIME", "COMMAND"}, cells))
		reportProblems(log.Problems)
		return nil
	},
}

// callRow is one table row.
type callRow struct {
	turn, id, kind, status, took, title string
}

// callLog collects closed calls during replay. The registry forgets a
// call the moment it closes, so the table is built from notifications.
type callLog struct {
	rows []callRow
}

func (c *callLog) OnNotification(note engine.Notification) {
	v, ok := note.(engine.CallClosed)
	if !ok {
		return
	}
	c.rows = append(c.rows, closedCallRow(v))
}

func closedCallRow(v engine.CallClosed) callRow {
	row := callRow{
		turn:  v.Call.TurnID,
		id:    v.Call.CallID,
		kind:  string(v.Call.Kind),
		took:  formatDuration(v.Outcome.WireDuration),
		title: callTitle(v.Call.PendingCall),
	}
	switch {
	case v.Call.Forced:
		row.status = "interrupted"
	case v.Outcome.Success:
		row.status = "ok"
	case v.Call.Kind == engine.CallKindExec:
		row.status = fmt.Sprintf("exit %d", v.Outcome.ExitCode)
	default:
		row.status = "failed"
	}
	return row
}
