package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/derhofbauer/wristrelay/internal/bluetooth/goble"
	"github.com/derhofbauer/wristrelay/internal/settings"
)

// probeCmd represents the probe command
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Connect to the wearable and request its device info",
	Long: `Scan for the wearable by advertised name, connect, subscribe to its
vendor communication characteristic and send a device info request.

Incoming frames are logged. Handy to confirm pairing and that the
watch is in range before running the daemon.`,
	RunE: runProbe,
}

var probeTimeout time.Duration

func init() {
	probeCmd.Flags().DurationVarP(&probeTimeout, "timeout", "t", goble.DefaultScanTimeout, "Scan timeout")
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	// the peer-name preference wins over the config file
	prefix := cfg.Bluetooth.PeerPrefix
	base, err := basePath(cfg)
	if err == nil {
		if manager, err := settings.NewManager(base); err == nil {
			prefix = manager.GetDefault(settings.PrefPeerName, prefix)
		}
	}

	probe := goble.NewProbe(prefix, logger)
	// the flag wins over the config file when given explicitly
	if cmd.Flags().Changed("timeout") {
		probe.SetScanTimeout(probeTimeout)
	} else {
		probe.SetScanTimeout(time.Duration(cfg.Bluetooth.ScanTimeout))
	}
	probe.SetWriteTimeout(time.Duration(cfg.Bluetooth.WriteTimeout))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return probe.Run(ctx)
}
