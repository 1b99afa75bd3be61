// Package bluez tracks the local Bluetooth adapter's power state over
// D-Bus, so the BLE transport can latch and release without polling.
package bluez

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"

	"github.com/derhofbauer/wristrelay/internal/groutine"
)

const (
	bluezBus        = "org.bluez"
	bluezAdapter1   = "org.bluez.Adapter1"
	dbusProperties  = "org.freedesktop.DBus.Properties"
	defaultAdapter  = "hci0"
	signalBufferLen = 16
)

// AdapterWatcher reports the adapter's Powered state and its changes.
type AdapterWatcher struct {
	conn    *dbus.Conn
	adapter string
	path    dbus.ObjectPath
	logger  *logrus.Logger
}

// NewAdapterWatcher connects to the system bus and binds to the given
// adapter ("hci0" when empty).
func NewAdapterWatcher(adapter string, logger *logrus.Logger) (*AdapterWatcher, error) {
	if adapter == "" {
		adapter = defaultAdapter
	}
	if logger == nil {
		logger = logrus.New()
	}

	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}

	return &AdapterWatcher{
		conn:    conn,
		adapter: adapter,
		path:    dbus.ObjectPath("/org/bluez/" + adapter),
		logger:  logger,
	}, nil
}

// Powered reads the adapter's current power state.
func (w *AdapterWatcher) Powered() (bool, error) {
	variant, err := w.conn.Object(bluezBus, w.path).GetProperty(bluezAdapter1 + ".Powered")
	if err != nil {
		return false, fmt.Errorf("read %s Powered: %w", w.adapter, err)
	}
	powered, ok := variant.Value().(bool)
	if !ok {
		return false, fmt.Errorf("unexpected Powered type %T", variant.Value())
	}
	return powered, nil
}

// Watch invokes onChange with the current power state and again on every
// change, until ctx is cancelled. onChange runs on the watcher goroutine.
func (w *AdapterWatcher) Watch(ctx context.Context, onChange func(powered bool)) error {
	err := w.conn.AddMatchSignal(
		dbus.WithMatchInterface(dbusProperties),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchObjectPath(w.path),
	)
	if err != nil {
		return fmt.Errorf("add match rule: %w", err)
	}

	signals := make(chan *dbus.Signal, signalBufferLen)
	w.conn.Signal(signals)

	powered, err := w.Powered()
	if err != nil {
		w.logger.WithError(err).Warn("could not read initial adapter state")
	} else {
		onChange(powered)
	}

	groutine.Go(ctx, "bluez-adapter-watch", func(ctx context.Context) {
		defer w.conn.RemoveSignal(signals)

		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				if powered, changed := poweredFromSignal(sig); changed {
					w.logger.WithField("powered", powered).Debug("adapter power changed")
					onChange(powered)
				}
			}
		}
	})
	return nil
}

// poweredFromSignal extracts a Powered change from a PropertiesChanged
// signal on the Adapter1 interface.
func poweredFromSignal(sig *dbus.Signal) (powered, changed bool) {
	if sig == nil || sig.Name != dbusProperties+".PropertiesChanged" || len(sig.Body) < 2 {
		return false, false
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != bluezAdapter1 {
		return false, false
	}
	props, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return false, false
	}
	variant, ok := props["Powered"]
	if !ok {
		return false, false
	}
	value, ok := variant.Value().(bool)
	if !ok {
		return false, false
	}
	return value, true
}
