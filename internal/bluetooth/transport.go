package bluetooth

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/derhofbauer/wristrelay/internal/notify"
)

// SettleDelay gives a fresh connection time to settle before the latched
// notification is flushed.
const SettleDelay = 2 * time.Second

// AlertServer is the GATT side of the transport: it serves the alert
// notification service and pushes alert payloads to the subscribed peer.
type AlertServer interface {
	// Start brings the service up and begins advertising. Idempotent.
	// The callbacks fire on the server's goroutine when the peer
	// subscribes to alerts and when it goes away.
	Start(onConnected, onDisconnected func()) error

	// Stop disconnects the peer and tears the service down.
	Stop()

	// SendAlert pushes one alert payload to the subscribed peer.
	SendAlert(data []byte) error
}

// Transport delivers notifications over BLE. While no peer is subscribed
// it latches the most recent message only, so a user reconnecting after a
// gap gets one alert instead of a backlog.
type Transport struct {
	server AlertServer
	logger *logrus.Logger

	mu        sync.Mutex
	enabled   bool
	connected bool
	pending   *notify.Message
	settle    time.Duration
	flush     *time.Timer
}

var _ notify.Handler = (*Transport)(nil)

// NewTransport wires the transport to its alert server. It starts
// disabled; the adapter watcher enables it once the radio is powered.
func NewTransport(server AlertServer, logger *logrus.Logger) *Transport {
	if logger == nil {
		logger = logrus.New()
	}
	return &Transport{
		server: server,
		logger: logger,
		settle: SettleDelay,
	}
}

// AddNotification implements notify.Handler.
func (t *Transport) AddNotification(msg *notify.Message) notify.Result {
	t.mu.Lock()
	if !t.enabled {
		t.mu.Unlock()
		t.logger.Debug("bluetooth disabled, can't notify")
		return notify.ResultFailure
	}

	if !t.connected {
		t.pending = msg
		t.mu.Unlock()
		if err := t.server.Start(t.onConnected, t.onDisconnected); err != nil {
			t.logger.WithError(err).Error("could not start alert server")
			return notify.ResultFailure
		}
		return notify.ResultDelayed
	}

	t.pending = nil
	t.mu.Unlock()

	if err := t.Send(AlertMessage, msg.String()); err != nil {
		t.logger.WithError(err).Warn("alert not delivered")
		return notify.ResultFailure
	}
	return notify.ResultSuccess
}

// Send pushes one alert of the given type to the peer.
func (t *Transport) Send(alertType byte, text string) error {
	return t.server.SendAlert(AlertData(alertType, text))
}

// SetEnabled tracks the radio power state. Disabling drops the connection
// and the latched message.
func (t *Transport) SetEnabled(enabled bool) {
	t.mu.Lock()
	wasEnabled := t.enabled
	t.enabled = enabled
	if !enabled {
		t.connected = false
		t.pending = nil
		if t.flush != nil {
			t.flush.Stop()
			t.flush = nil
		}
	}
	t.mu.Unlock()

	if wasEnabled && !enabled {
		t.logger.Debug("radio off, closing alert server")
		t.server.Stop()
	}
	if !wasEnabled && enabled {
		t.logger.Debug("radio on")
	}
}

// Connected reports whether a peer is currently subscribed.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Stop tears the transport down.
func (t *Transport) Stop() {
	t.mu.Lock()
	t.connected = false
	t.pending = nil
	if t.flush != nil {
		t.flush.Stop()
		t.flush = nil
	}
	t.mu.Unlock()

	t.server.Stop()
}

func (t *Transport) onConnected() {
	t.mu.Lock()
	t.connected = true
	hasPending := t.pending != nil
	if hasPending {
		if t.flush != nil {
			t.flush.Stop()
		}
		t.flush = time.AfterFunc(t.settle, t.flushPending)
	}
	t.mu.Unlock()

	t.logger.WithField("pending", hasPending).Debug("peer subscribed")
}

func (t *Transport) onDisconnected() {
	t.mu.Lock()
	t.connected = false
	t.mu.Unlock()

	t.logger.Debug("peer gone")
}

// flushPending re-submits the latched message after the settle delay.
// The message stays latched until delivery actually succeeds, so a
// connection that drops during the delay just re-latches it.
func (t *Transport) flushPending() {
	t.mu.Lock()
	msg := t.pending
	t.mu.Unlock()

	if msg == nil {
		return
	}
	t.logger.Debug("flushing latched notification")
	t.AddNotification(msg)
}
