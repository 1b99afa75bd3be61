package main

import (
	"errors"
	"strings"

	"github.com/derhofbauer/wristrelay/internal/bluetooth"
)

// formatUserError turns wrapped internal errors into something a person
// can act on.
func formatUserError(err error) string {
	switch {
	case errors.Is(err, bluetooth.ErrDisabled):
		return "Bluetooth is disabled; power the adapter on and try again"
	case errors.Is(err, bluetooth.ErrNotConnected):
		return "the wearable is not connected"
	case errors.Is(err, bluetooth.ErrWriteTimeout):
		return "the wearable did not acknowledge in time"
	}

	msg := err.Error()
	if strings.Contains(msg, "system bus") || strings.Contains(msg, "session bus") {
		return msg + " (is D-Bus running?)"
	}
	return msg
}
