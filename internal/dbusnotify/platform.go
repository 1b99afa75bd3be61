package dbusnotify

import (
	"fmt"
	"strconv"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"

	"github.com/derhofbauer/wristrelay/internal/notify"
)

const (
	screenSaverIface = "org.freedesktop.ScreenSaver"
	screenSaverPath  = "/org/freedesktop/ScreenSaver"
)

// Platform answers the gate's environment queries over the session bus.
// It uses the shared connection, not the monitor one.
type Platform struct {
	conn   *dbus.Conn
	logger *logrus.Logger
}

var _ notify.Platform = (*Platform)(nil)

// NewPlatform binds to the shared session bus connection.
func NewPlatform(logger *logrus.Logger) (*Platform, error) {
	if logger == nil {
		logger = logrus.New()
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	return &Platform{conn: conn, logger: logger}, nil
}

// CurrentInterruptionFilter maps the notification daemon's Inhibited
// property (the do-not-disturb switch) onto an interruption filter.
func (p *Platform) CurrentInterruptionFilter() notify.InterruptionFilter {
	variant, err := p.conn.Object(notificationsIface, notificationsPath).
		GetProperty(notificationsIface + ".Inhibited")
	if err != nil {
		p.logger.WithError(err).Debug("could not read Inhibited property")
		return notify.FilterUnknown
	}
	return filterFromInhibited(variant.Value())
}

// IsInteractive reports whether the user is at the screen. An active
// screensaver means they are not; a query failure counts as away so
// notifications keep flowing.
func (p *Platform) IsInteractive() bool {
	var active bool
	err := p.conn.Object(screenSaverIface, screenSaverPath).
		Call(screenSaverIface+".GetActive", 0).Store(&active)
	if err != nil {
		p.logger.WithError(err).Debug("could not query screensaver")
		return false
	}
	return !active
}

// CancelNotification closes a notification by its daemon id. Keys are
// only known for notifications posted with a reusable id; anything else
// is silently ignored.
func (p *Platform) CancelNotification(key string) {
	id, err := strconv.ParseUint(key, 10, 32)
	if err != nil || id == 0 {
		p.logger.WithField("key", key).Debug("no usable id, not cancelling")
		return
	}

	call := p.conn.Object(notificationsIface, notificationsPath).
		Call(notificationsIface+".CloseNotification", 0, uint32(id))
	if call.Err != nil {
		p.logger.WithError(call.Err).WithField("id", id).Warn("could not close notification")
	}
}

// filterFromInhibited interprets the Inhibited property value.
func filterFromInhibited(value interface{}) notify.InterruptionFilter {
	inhibited, ok := value.(bool)
	if !ok {
		return notify.FilterUnknown
	}
	if inhibited {
		return notify.FilterNone
	}
	return notify.FilterAll
}
