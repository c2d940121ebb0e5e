package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SawyerHood/codex/protocol"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [events|submissions]",
	Short: "Print JSON Schemas for the wire protocol",
	Long: `Schema prints JSON Schemas for the event and submission unions, one
entry per tagged variant, for frontends that validate traffic before
trusting it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		which := ""
		if len(args) == 1 {
			which = args[0]
		}
		out := make(map[string][]protocol.SchemaEntry, 2)
		switch which {
		case "events":
			out["events"] = protocol.EventSchema()
		case "submissions":
			out["submissions"] = protocol.SubmissionSchema()
		case "":
			out["events"] = protocol.EventSchema()
			out["submissions"] = protocol.SubmissionSchema()
		default:
			return fmt.Errorf("unknown schema set %q (want events or submissions)", which)
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}
