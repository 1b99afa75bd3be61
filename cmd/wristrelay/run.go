package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/derhofbauer/wristrelay/internal/dbusnotify"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the notification mirroring daemon",
	Long: `Run the daemon: watch the session bus for posted notifications and
forward the ones that pass filtering to the configured transport.

The daemon keeps running until interrupted. Forwarding itself is gated
by the enabled preference; toggle it with the settings without
restarting.`,
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	monitor, err := dbusnotify.NewMonitor(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.listener.Start(ctx); err != nil {
		return err
	}
	defer p.listener.Stop()

	if err := monitor.Run(ctx, p.listener.Handle); err != nil {
		return err
	}

	logger.Info("daemon running")
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
