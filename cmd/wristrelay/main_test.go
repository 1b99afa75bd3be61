package main

import (
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derhofbauer/wristrelay/internal/bluetooth"
	"github.com/derhofbauer/wristrelay/internal/config"
)

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "v1.2.3", formatVersion("1.2.3"))
	assert.Equal(t, "dev", formatVersion("dev"))
	assert.Equal(t, "", formatVersion(""))
}

func TestFormatUserError(t *testing.T) {
	assert.Equal(t,
		"Bluetooth is disabled; power the adapter on and try again",
		formatUserError(fmt.Errorf("send: %w", bluetooth.ErrDisabled)))

	assert.Equal(t,
		"the wearable is not connected",
		formatUserError(bluetooth.ErrNotConnected))

	assert.Equal(t,
		"the wearable did not acknowledge in time",
		formatUserError(bluetooth.ErrWriteTimeout))

	assert.Equal(t,
		"connect to session bus: boom (is D-Bus running?)",
		formatUserError(fmt.Errorf("connect to session bus: boom")))

	assert.Equal(t, "plain failure", formatUserError(fmt.Errorf("plain failure")))
}

func newLoggingTestCmd(logLevel string) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("log-level", "", "")
	if logLevel != "" {
		_ = cmd.Flags().Set("log-level", logLevel)
	}
	return cmd
}

func TestConfigureLoggerFlagOverridesConfig(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "warn"

	logger, err := configureLogger(newLoggingTestCmd("debug"), cfg)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestConfigureLoggerUsesConfigLevel(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "error"

	logger, err := configureLogger(newLoggingTestCmd(""), cfg)
	require.NoError(t, err)
	assert.Equal(t, logrus.ErrorLevel, logger.GetLevel())
}

func TestConfigureLoggerRejectsBadLevel(t *testing.T) {
	_, err := configureLogger(newLoggingTestCmd("loud"), config.Default())
	assert.ErrorContains(t, err, "invalid log level")
}
