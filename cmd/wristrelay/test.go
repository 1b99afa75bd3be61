package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/derhofbauer/wristrelay/internal/notify"
	"github.com/derhofbauer/wristrelay/internal/settings"
)

// colorResult renders the tri-state delivery result for humans.
func colorResult(result notify.Result) string {
	switch result {
	case notify.ResultSuccess:
		return color.GreenString(result.String())
	case notify.ResultDelayed:
		return color.YellowString(result.String())
	default:
		return color.RedString(result.String())
	}
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification through the active transport",
	Long: `Send a synthetic notification through the currently configured
transport, bypassing all filtering. Useful to verify the wearable (or
the calendar fallback) actually receives something.`,
	RunE: runTest,
}

var testWait time.Duration

func init() {
	testCmd.Flags().DurationVarP(&testWait, "wait", "w", 5*time.Second, "How long to wait for delivery to settle")
}

func runTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	if err := p.listener.Start(cmd.Context()); err != nil {
		return err
	}
	defer p.listener.Stop()

	if !p.listener.Enabled() {
		return fmt.Errorf("forwarding is disabled; enable it with: wristrelay apps (or set %s)", settings.PrefEnabled)
	}

	result := p.listener.SendTest()
	fmt.Printf("test notification: %s\n", colorResult(result))

	// calendar delivery and BLE flushing happen asynchronously
	time.Sleep(testWait)
	return nil
}
