package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"examsync/internal/model"
	"examsync/internal/search"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Resolve a class search against the exam list",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store := newStore(cfg)
			if err := store.Refresh(cmd.Context()); err != nil {
				return err
			}

			var query string
			if len(args) > 0 {
				query = args[0]
			}
			class, _ := cmd.Flags().GetString("class")
			if class != "" && query == "" {
				query = class
			}

			res := search.Resolve(query, store.Snapshot().Exams, class)
			out := cmd.OutOrStdout()
			switch res.Mode {
			case search.ModeEmpty:
				fmt.Fprintf(out, "query must be at least %d characters\n", search.MinQueryLength)
			case search.ModeNotFound:
				fmt.Fprintf(out, "no class matches %q\n", query)
			case search.ModeList:
				classes, truncated := res.DisplayClasses(search.MaxClassDisplay)
				fmt.Fprintf(out, "%d classes match %q:\n", len(res.Classes), query)
				for _, c := range classes {
					fmt.Fprintf(out, "  %s\n", c)
				}
				if truncated {
					fmt.Fprintf(out, "  ... showing first %d, refine the query\n", search.MaxClassDisplay)
				}
			case search.ModeDetail:
				fmt.Fprintf(out, "%s: %d exams\n", res.Class(), len(res.Exams))
				printExams(cmd, res.Exams)
			}
			return nil
		},
	}

	cmd.Flags().StringP("class", "c", "", "Pin an exact class code, as a share link does")
	return cmd
}

func printExams(cmd *cobra.Command, exams []model.Exam) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOURSE\tSTART\tLOCATION")
	for _, e := range exams {
		start := e.StartTimestamp
		if !e.HasStartTime() {
			start = "时间待定"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.CourseName, start, e.Location)
	}
	tw.Flush()
}
