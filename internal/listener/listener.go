// Package listener composes the daemon: it owns the master enable switch,
// selects the delivery transport, and ties the BLE transport to the local
// adapter's power state.
package listener

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/derhofbauer/wristrelay/internal/notify"
	"github.com/derhofbauer/wristrelay/internal/settings"
)

// BluetoothTransport is the subset of the BLE transport the listener
// drives. Construction is behind a factory so a failure can fall back to
// the calendar transport instead of taking the daemon down.
type BluetoothTransport interface {
	notify.Handler
	SetEnabled(enabled bool)
	Stop()
}

// AdapterWatcher reports local Bluetooth adapter power changes.
type AdapterWatcher interface {
	Watch(ctx context.Context, onChange func(powered bool)) error
}

// Listener reacts to the enabled and notifier preferences, swapping the
// gate's transport at runtime.
type Listener struct {
	settings *settings.Manager
	gate     *notify.Gate
	calendar notify.Handler
	adapter  AdapterWatcher
	logger   *logrus.Logger

	newBluetooth func() (BluetoothTransport, error)

	mu        sync.Mutex
	enabled   bool
	powered   bool
	bluetooth BluetoothTransport

	removeFns []func()
}

// New wires a listener. calendar is the always-available fallback
// transport; newBluetooth builds the BLE transport on demand; adapter may
// be nil when no adapter watching is wanted.
func New(mgr *settings.Manager, gate *notify.Gate, calendar notify.Handler, newBluetooth func() (BluetoothTransport, error), adapter AdapterWatcher, logger *logrus.Logger) *Listener {
	if logger == nil {
		logger = logrus.New()
	}
	return &Listener{
		settings:     mgr,
		gate:         gate,
		calendar:     calendar,
		adapter:      adapter,
		logger:       logger,
		newBluetooth: newBluetooth,
	}
}

// Start subscribes to the preferences and the adapter state. The gate's
// handler reflects the current configuration when Start returns.
func (l *Listener) Start(ctx context.Context) error {
	if l.adapter != nil {
		if err := l.adapter.Watch(ctx, l.onAdapterChange); err != nil {
			return err
		}
	}

	l.removeFns = append(l.removeFns,
		l.settings.OnChangeImmediate(settings.PrefEnabled, l.onChangeEnabled),
		l.settings.OnChange(settings.PrefNotifier, l.onChangeNotifier),
	)
	return nil
}

// Stop unsubscribes and shuts the BLE transport down.
func (l *Listener) Stop() {
	for _, remove := range l.removeFns {
		remove()
	}
	l.removeFns = nil
	l.stopBluetooth()
}

// Enabled reports the master switch.
func (l *Listener) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Handle forwards one raw notification into the gate, honoring the master
// switch.
func (l *Listener) Handle(raw *notify.RawNotification) {
	if !l.Enabled() {
		l.logger.Debug("disabled, dropping notification")
		return
	}
	l.gate.Handle(raw)
}

// SendTest delivers a synthetic message through the active transport,
// bypassing the gate's filters.
func (l *Listener) SendTest() notify.Result {
	msg := &notify.Message{
		Primary:   "wristrelay",
		Secondary: time.Now().Format("3:04:05 PM") + " 123456",
	}
	return l.gate.Deliver(msg)
}

func (l *Listener) onChangeEnabled(value string) {
	enabled := settings.ParseBool(value)

	l.mu.Lock()
	l.enabled = enabled
	l.mu.Unlock()

	if enabled {
		l.applyNotifier(l.settings.GetDefault(settings.PrefNotifier, settings.NotifierCalendar))
		return
	}

	l.logger.Debug("disabled")
	l.stopBluetooth()
}

func (l *Listener) onChangeNotifier(value string) {
	if !l.Enabled() {
		return
	}
	l.applyNotifier(value)
}

// applyNotifier swaps the gate's transport according to the notifier
// preference.
func (l *Listener) applyNotifier(notifier string) {
	if notifier != settings.NotifierBluetooth {
		l.stopBluetooth()
		l.gate.SetHandler(l.calendar)
		l.logger.Debug("calendar transport active")
		return
	}

	l.mu.Lock()
	transport := l.bluetooth
	powered := l.powered
	l.mu.Unlock()

	if transport == nil {
		built, err := l.newBluetooth()
		if err != nil {
			l.logger.WithError(err).Error("could not build transport, falling back to calendar")
			l.gate.SetHandler(l.calendar)
			return
		}
		transport = built

		l.mu.Lock()
		l.bluetooth = transport
		l.mu.Unlock()
	}

	transport.SetEnabled(powered || l.adapter == nil)
	l.gate.SetHandler(transport)
	l.logger.Debug("bluetooth transport active")
}

// onAdapterChange propagates adapter power into the BLE transport. While
// unpowered the transport latches instead of sending.
func (l *Listener) onAdapterChange(powered bool) {
	l.mu.Lock()
	l.powered = powered
	transport := l.bluetooth
	l.mu.Unlock()

	if transport != nil {
		transport.SetEnabled(powered)
	}
}

func (l *Listener) stopBluetooth() {
	l.mu.Lock()
	transport := l.bluetooth
	l.bluetooth = nil
	l.mu.Unlock()

	if transport == nil {
		return
	}
	l.logger.Debug("stopping bluetooth transport")
	transport.Stop()
}
