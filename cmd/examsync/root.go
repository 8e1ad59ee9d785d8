package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"examsync/internal/config"
	"examsync/internal/dataset"
	"examsync/internal/ics"
	appLog "examsync/internal/log"
)

const version = "0.1.0"

// Execute builds the command tree and runs it.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd wires the global flags and every sub-command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "examsync",
		Short: "Search published exam schedules and export them to calendars",
		Long: `examsync serves the published exam list over HTTP, resolves class
searches and exports the chosen exams as an iCalendar (.ics) file with
reminders.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultConfig := os.Getenv("EXAMSYNC_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "config.yaml"
	}
	cmd.PersistentFlags().String("config", defaultConfig, "Path to config file")
	cmd.PersistentFlags().String("env-file", ".env", "Optional .env file loaded before the config")

	cmd.AddCommand(newServeCmd(), newSearchCmd(), newExportCmd(), newInspectCmd())
	return cmd
}

// loadConfig loads the .env overlay and the YAML config, applies
// environment overrides and configures the logger. It also returns the
// config path that was used.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	flags := cmd.Root().PersistentFlags()
	configPath, _ := flags.GetString("config")
	envFile, _ := flags.GetString("env-file")

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}
	// EXAMSYNC_CONFIG may come from the .env file itself.
	if !flags.Changed("config") {
		if v := os.Getenv("EXAMSYNC_CONFIG"); v != "" {
			configPath = v
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("load config %s: %w", configPath, err)
	}
	cfg.ApplyEnv()
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	return cfg, configPath, nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

func newStore(cfg *config.Config) *dataset.Store {
	return dataset.NewStore(
		dataset.NewFetcher(cfg.Data.CacheDir),
		dataset.Sources{Exams: cfg.Data.Exams, Summary: cfg.Data.Summary},
	)
}

func exportConfig(cfg *config.Config, loc *time.Location) ics.ExportConfig {
	return ics.ExportConfig{
		ProductID: cfg.Calendar.ProductID,
		UIDDomain: cfg.Calendar.UIDDomain,
		Location:  loc,
	}
}
