package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/derhofbauer/wristrelay/internal/calendar"
)

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove the fallback transport's calendar",
	Long: `Delete the calendar the fallback transport plants its events in,
including any events and reminders still inside. User calendars are
never touched.`,
	RunE: runCleanup,
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	base, err := basePath(cfg)
	if err != nil {
		return err
	}

	svc := calendar.NewService(calendar.NewStore(base, logger), logger)
	if err := svc.CleanUp(cmd.Context()); err != nil {
		return err
	}

	fmt.Println("calendar removed")
	return nil
}
