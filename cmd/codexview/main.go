// codexview inspects recorded codex protocol sessions: transcripts,
// call tables, token accounting, live tailing, and wire schemas.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	widthFlag int
	plainFlag bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "codexview",
	Short: "Inspect recorded codex protocol sessions",
	Long: `codexview replays recorded session logs through the correlation engine
and renders what the agent did.

A session log is newline-delimited JSON: a configuration summary line,
a prompt line, then the event stream in arrival order.`,
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&widthFlag, "width", "w", 0,
		"Render width in columns (default: terminal width)")
	rootCmd.PersistentFlags().BoolVar(&plainFlag, "plain", false,
		"Disable color and markdown rendering")

	rootCmd.AddCommand(transcriptCmd)
	rootCmd.AddCommand(callsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(schemaCmd)
}

// quietLogger keeps engine slog output away from rendered transcripts;
// diagnostics reach the user through notifications instead.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// reportProblems sends loader diagnostics to stderr so they never mix
// into the rendered output.
func reportProblems(problems []string) {
	for _, p := range problems {
		fmt.Fprintln(os.Stderr, "warning:", p)
	}
}
