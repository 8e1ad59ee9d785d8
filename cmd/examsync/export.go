package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"examsync/internal/ics"
	"examsync/internal/search"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a class's exams to an ICS file",
		Long: `Export every timed exam of a class to an ICS file. Exams listed with
--exclude are left out, matching an unticked row in the web UI.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			class, _ := cmd.Flags().GetString("class")
			exclude, _ := cmd.Flags().GetStringSlice("exclude")
			reminders, _ := cmd.Flags().GetIntSlice("reminder")
			output, _ := cmd.Flags().GetString("output")

			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			loc, err := loadLocation(cfg.Timezone)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("reminder") {
				reminders = cfg.Preferences.Reminders
			}

			store := newStore(cfg)
			if err := store.Refresh(cmd.Context()); err != nil {
				return err
			}

			classExams := search.ByClass(store.Snapshot().Exams, class)
			if len(classExams) == 0 {
				return fmt.Errorf("class %s not found", class)
			}

			exams := search.Exportable(search.Without(classExams, exclude))
			body, err := ics.GenerateCalendar(exams, class, ics.NewReminders(reminders...).Minutes(), exportConfig(cfg, loc))
			if errors.Is(err, ics.ErrNoExportableEvents) {
				return fmt.Errorf("class %s has no selected exam with a published time", class)
			}
			if err != nil {
				return fmt.Errorf("failed to generate ICS: %w", err)
			}

			if output == "" {
				output = ics.FileName(cfg.Calendar.FilePrefix, class)
			}
			if err := os.WriteFile(output, []byte(body), 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d exams to %s\n", len(exams), output)
			return nil
		},
	}

	cmd.Flags().StringP("class", "c", "", "Class code to export (exact match)")
	cmd.Flags().StringSlice("exclude", nil, "Exam id to leave out (repeatable)")
	cmd.Flags().IntSlice("reminder", nil, "Reminder offset in minutes (repeatable, defaults to preferences)")
	cmd.Flags().StringP("output", "o", "", "Output file path (defaults to NJUPT_Exams_<class>.ics)")
	cmd.MarkFlagRequired("class")
	return cmd
}
