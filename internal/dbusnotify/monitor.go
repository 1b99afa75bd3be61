// Package dbusnotify sources notifications from the desktop's
// org.freedesktop.Notifications bus traffic and exposes the platform
// operations the gate needs (interruption state, user presence,
// notification cancellation).
package dbusnotify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"

	"github.com/derhofbauer/wristrelay/internal/groutine"
	"github.com/derhofbauer/wristrelay/internal/notify"
)

const (
	notificationsIface = "org.freedesktop.Notifications"
	notificationsPath  = "/org/freedesktop/Notifications"

	monitoringIface = "org.freedesktop.DBus.Monitoring"

	messageBufferLen = 32
)

// notifyRule selects Notify method calls for the monitor connection.
const notifyRule = "type='method_call',interface='" + notificationsIface + "',member='Notify'"

// Monitor taps Notify calls on the session bus and converts them into raw
// notifications. It needs a dedicated connection: a bus connection that
// became a monitor cannot send anything anymore.
type Monitor struct {
	conn   *dbus.Conn
	logger *logrus.Logger

	nextID int64
}

// NewMonitor opens a private session bus connection for monitoring.
func NewMonitor(logger *logrus.Logger) (*Monitor, error) {
	if logger == nil {
		logger = logrus.New()
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	return &Monitor{conn: conn, logger: logger}, nil
}

// Run turns the connection into a monitor and feeds converted
// notifications into sink until ctx is cancelled. sink runs on the
// monitor goroutine.
func (m *Monitor) Run(ctx context.Context, sink func(raw *notify.RawNotification)) error {
	call := m.conn.BusObject().Call(monitoringIface+".BecomeMonitor", 0, []string{notifyRule}, uint32(0))
	if call.Err != nil {
		return fmt.Errorf("become monitor: %w", call.Err)
	}

	messages := make(chan *dbus.Message, messageBufferLen)
	m.conn.Eavesdrop(messages)

	groutine.Go(ctx, "dbus-notification-monitor", func(ctx context.Context) {
		defer m.conn.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				raw, ok := m.rawFromMessage(msg)
				if !ok {
					continue
				}
				m.logger.WithFields(logrus.Fields{
					"id":     raw.ID,
					"source": raw.SourceApp,
				}).Debug("notification observed")
				sink(raw)
			}
		}
	})
	return nil
}

// rawFromMessage converts one eavesdropped Notify call. The wire order is
// app_name, replaces_id, app_icon, summary, body, actions, hints,
// expire_timeout.
func (m *Monitor) rawFromMessage(msg *dbus.Message) (*notify.RawNotification, bool) {
	if msg == nil || msg.Type != dbus.TypeMethodCall {
		return nil, false
	}
	if member, ok := msg.Headers[dbus.FieldMember].Value().(string); !ok || member != "Notify" {
		return nil, false
	}
	if len(msg.Body) < 8 {
		return nil, false
	}

	appName, ok := msg.Body[0].(string)
	if !ok {
		return nil, false
	}
	replacesID, _ := msg.Body[1].(uint32)
	summary, _ := msg.Body[3].(string)
	body, _ := msg.Body[4].(string)
	hints, _ := msg.Body[6].(map[string]dbus.Variant)

	raw := &notify.RawNotification{
		ID:         int(atomic.AddInt64(&m.nextID, 1)),
		SourceApp:  sourceApp(appName, hints),
		SourceName: appName,
		Category:   categoryFromHints(hints),
		Title:      summary,
		Text:       body,
		Ongoing:    boolHint(hints, "resident"),
		GroupKey:   groupKey(hints),
		Extras:     extras(hints),
	}

	// The daemon-assigned id is only visible in the reply, which a
	// monitor cannot correlate. A reused replaces_id is the best handle
	// we get for later cancellation.
	if replacesID > 0 {
		raw.Key = strconv.FormatUint(uint64(replacesID), 10)
	}
	return raw, true
}

// sourceApp prefers the reverse-DNS desktop entry over the free-form
// application name, so source matching works on stable identifiers.
func sourceApp(appName string, hints map[string]dbus.Variant) string {
	if entry := stringHint(hints, "desktop-entry"); entry != "" {
		return entry
	}
	return appName
}

// categoryFromHints maps freedesktop notification categories onto the
// internal category names.
func categoryFromHints(hints map[string]dbus.Variant) string {
	category := stringHint(hints, "category")
	if category == "" {
		return ""
	}

	class, _, _ := strings.Cut(category, ".")

	switch {
	case class == "im":
		return notify.CategoryMessage
	case class == "email":
		return notify.CategoryEmail
	case class == "call":
		return notify.CategoryCall
	case class == "alarm":
		return notify.CategoryAlarm
	case class == "calendar" || category == "x-gnome.calendar":
		return notify.CategoryEvent
	}
	return category
}

func groupKey(hints map[string]dbus.Variant) string {
	for _, key := range []string{"x-stack-tag", "x-dunst-stack-tag"} {
		if tag := stringHint(hints, key); tag != "" {
			return tag
		}
	}
	return ""
}

// extras keeps all string-valued hints and normalizes event uid hints
// under the "UID" key.
func extras(hints map[string]dbus.Variant) map[string]string {
	if len(hints) == 0 {
		return nil
	}

	out := make(map[string]string)
	for key, variant := range hints {
		if value, ok := variant.Value().(string); ok {
			out[key] = value
		}
	}
	for _, key := range []string{"uid", "x-event-uid", "x-evolution-event-uid"} {
		if value := stringHint(hints, key); value != "" {
			out["UID"] = value
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func stringHint(hints map[string]dbus.Variant, key string) string {
	variant, ok := hints[key]
	if !ok {
		return ""
	}
	value, _ := variant.Value().(string)
	return value
}

func boolHint(hints map[string]dbus.Variant, key string) bool {
	variant, ok := hints[key]
	if !ok {
		return false
	}
	value, _ := variant.Value().(bool)
	return value
}
