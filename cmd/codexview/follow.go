package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SawyerHood/codex/engine"
	"github.com/SawyerHood/codex/protocol"
	"github.com/SawyerHood/codex/sessionlog"
)

var followCmd = &cobra.Command{
	Use:   "follow <session.ndjson>",
	Short: "Tail a live session log and narrate activity as it lands",
	Long: `Follow replays everything already in the log, then keeps watching the
file and narrates new events as the backend appends them. Interrupt to
stop.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		r := newRenderer(widthFlag, plainFlag)
		nar := &narrative{}
		eng := engine.New(engine.WithLogger(quietLogger()))
		eng.AddObserver(nar)

		// Follow serializes its callbacks, so draining here is race-free.
		return sessionlog.Follow(ctx, args[0], func(ev protocol.Event) {
			eng.Apply(ev)
			for _, line := range nar.drain() {
				fmt.Print(r.renderLine(line))
			}
		})
	},
}
