// Package goble backs the bluetooth package with the go-ble stack: the
// alert server runs in the peripheral role, the probe in the central role.
package goble

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/derhofbauer/wristrelay/internal/bluetooth"
	"github.com/derhofbauer/wristrelay/internal/groutine"
)

// AlertServer serves the alert notification service in the peripheral
// role. The wearable connects to us and subscribes to the new-alert
// characteristic; alerts are pushed through that subscription.
type AlertServer struct {
	name   string
	logger *logrus.Logger

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	notifier ble.Notifier
}

var _ bluetooth.AlertServer = (*AlertServer)(nil)

// NewAlertServer builds a server advertising under the given local name.
func NewAlertServer(name string, logger *logrus.Logger) *AlertServer {
	if logger == nil {
		logger = logrus.New()
	}
	return &AlertServer{
		name:   name,
		logger: logger,
	}
}

// Start brings the GATT service up and starts advertising. Idempotent.
func (s *AlertServer) Start(onConnected, onDisconnected func()) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Debug("alert server already started")
		return nil
	}
	s.running = true
	s.mu.Unlock()

	dev, err := DeviceFactory()
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("create BLE device: %w", err)
	}
	ble.SetDefaultDevice(dev)

	if err := ble.AddService(s.buildService(onConnected, onDisconnected)); err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("register alert service: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	groutine.Go(ctx, "ble-advertise", func(ctx context.Context) {
		s.logger.WithField("name", s.name).Info("advertising alert service")
		err := ble.AdvertiseNameAndServices(ctx, s.name, ble.UUID16(0x1811))
		if err != nil && ctx.Err() == nil {
			s.logger.WithError(err).Error("advertising stopped unexpectedly")
		}
	})
	return nil
}

// Stop drops the peer subscription and stops advertising.
func (s *AlertServer) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	notifier := s.notifier
	s.cancel = nil
	s.notifier = nil
	s.running = false
	s.mu.Unlock()

	if notifier != nil {
		if err := notifier.Close(); err != nil {
			s.logger.WithError(err).Debug("notifier close")
		}
	}
	if cancel != nil {
		s.logger.Debug("stopping advertisement")
		cancel()
	}
}

// SendAlert pushes one alert payload through the live subscription.
func (s *AlertServer) SendAlert(data []byte) error {
	s.mu.Lock()
	notifier := s.notifier
	s.mu.Unlock()

	if notifier == nil {
		return bluetooth.ErrNotConnected
	}
	if _, err := notifier.Write(data); err != nil {
		return fmt.Errorf("notify new alert: %w", err)
	}
	s.logger.WithField("len", len(data)).Debug("alert sent")
	return nil
}

// buildService assembles the alert notification service.
func (s *AlertServer) buildService(onConnected, onDisconnected func()) *ble.Service {
	svc := ble.NewService(ble.UUID16(0x1811))

	controlPoint := svc.NewCharacteristic(ble.UUID16(0x2A44))
	controlPoint.HandleWrite(ble.WriteHandlerFunc(func(req ble.Request, rsp ble.ResponseWriter) {
		s.logger.WithField("len", len(req.Data())).Debug("alert control point write")
	}))

	newAlert := svc.NewCharacteristic(ble.UUID16(0x2A46))
	newAlert.HandleNotify(ble.NotifyHandlerFunc(func(req ble.Request, n ble.Notifier) {
		s.logger.WithField("peer", req.Conn().RemoteAddr()).Debug("new-alert subscription")

		s.mu.Lock()
		s.notifier = n
		s.mu.Unlock()
		onConnected()

		<-n.Context().Done()

		s.mu.Lock()
		if s.notifier == n {
			s.notifier = nil
		}
		s.mu.Unlock()
		onDisconnected()
		s.logger.Debug("new-alert subscription gone")
	}))

	unreadStatus := svc.NewCharacteristic(ble.UUID16(0x2A45))
	unreadStatus.HandleNotify(ble.NotifyHandlerFunc(func(req ble.Request, n ble.Notifier) {
		// served but unused; hold the subscription open
		<-n.Context().Done()
	}))

	categories := make([]byte, 2)
	binary.LittleEndian.PutUint16(categories, bluetooth.CategoryBitfield(bluetooth.SupportedAlerts))

	supportedNew := svc.NewCharacteristic(ble.UUID16(0x2A47))
	supportedNew.HandleRead(ble.ReadHandlerFunc(func(req ble.Request, rsp ble.ResponseWriter) {
		if _, err := rsp.Write(categories); err != nil {
			s.logger.WithError(err).Debug("supported new alert category read")
		}
	}))

	supportedUnread := svc.NewCharacteristic(ble.UUID16(0x2A48))
	supportedUnread.HandleRead(ble.ReadHandlerFunc(func(req ble.Request, rsp ble.ResponseWriter) {
		if _, err := rsp.Write(categories); err != nil {
			s.logger.WithError(err).Debug("supported unread alert category read")
		}
	}))

	return svc
}
