package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appLog "examsync/internal/log"
	"examsync/internal/scheduler"
	"examsync/internal/web"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the data refresh schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, configPath, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
				cfg.Listen = listen
			}

			appLog.Info("examsync starting", "version", version)
			appLog.Info("effective config",
				"listen", cfg.Listen,
				"timezone", cfg.Timezone,
				"refresh", cfg.RefreshCron,
				"exams", cfg.Data.Exams,
				"basic_auth", cfg.BasicAuth != nil,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store := newStore(cfg)
			sched := scheduler.New(store, cfg.RefreshCron)
			if err := sched.Start(ctx); err != nil {
				return err
			}
			defer sched.Stop()

			srv := web.NewServer(cfg, configPath, store)
			if err := srv.Run(ctx); err != nil {
				return err
			}
			appLog.Info("examsync exiting")
			return nil
		},
	}

	cmd.Flags().String("listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}
