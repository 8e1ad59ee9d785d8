package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"examsync/internal/ics"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.ics>",
		Short: "Print the events and reminders of an ICS file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cal, err := ics.ParseICS(body)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "calendar: %s (%s), %d events\n", cal.Name, cal.ProductID, len(cal.Events))

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "START\tEND\tSUMMARY\tLOCATION\tALARMS")
			for _, ev := range cal.Events {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					ev.Start.Format(time.RFC3339),
					ev.End.Format(time.RFC3339),
					ev.Summary,
					ev.Location,
					strings.Join(ev.Triggers, ","),
				)
			}
			return tw.Flush()
		},
	}
}
