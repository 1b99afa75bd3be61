package goble

import (
	"context"
	"fmt"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/derhofbauer/wristrelay/internal/bluetooth"
)

// DefaultScanTimeout bounds how long the probe searches for the wearable.
const DefaultScanTimeout = 30 * time.Second

// Probe connects to the wearable in the central role, enables
// notifications on its vendor communication characteristic and sends the
// device info request, logging whatever comes back. Used for pairing
// checks and connectivity diagnostics.
type Probe struct {
	namePrefix  string
	scanTimeout time.Duration
	logger      *logrus.Logger

	writer *bluetooth.Writer
	client ble.Client
}

// probePort adapts the synchronous go-ble write call to the writer's
// acknowledged port contract: the stack confirms the write before
// returning, so the ack is reported immediately.
type probePort struct {
	probe *Probe
}

func (p *probePort) WriteCharacteristic(uuid string, data []byte) error {
	char, err := p.probe.findCharacteristic(uuid)
	if err != nil {
		return err
	}
	if err := p.probe.client.WriteCharacteristic(char, data, false); err != nil {
		return fmt.Errorf("write characteristic %s: %w", bluetooth.ShortenUUID(uuid), err)
	}
	p.probe.writer.OnWriteDone(uuid, true)
	return nil
}

// NewProbe builds a probe matching devices by advertised name prefix.
func NewProbe(namePrefix string, logger *logrus.Logger) *Probe {
	if logger == nil {
		logger = logrus.New()
	}
	p := &Probe{
		namePrefix:  namePrefix,
		scanTimeout: DefaultScanTimeout,
		logger:      logger,
	}
	p.writer = bluetooth.NewWriter(&probePort{probe: p}, logger)
	return p
}

// SetScanTimeout overrides the search window.
func (p *Probe) SetScanTimeout(timeout time.Duration) {
	if timeout > 0 {
		p.scanTimeout = timeout
	}
}

// SetWriteTimeout overrides the write acknowledgement timeout.
func (p *Probe) SetWriteTimeout(timeout time.Duration) {
	p.writer.SetAckTimeout(timeout)
}

// Run executes the full probe: scan, connect, configure notifications,
// send the device info request. Blocks until done or ctx expires.
func (p *Probe) Run(ctx context.Context) error {
	dev, err := DeviceFactory()
	if err != nil {
		return fmt.Errorf("create BLE device: %w", err)
	}
	ble.SetDefaultDevice(dev)

	addr, err := p.search(ctx)
	if err != nil {
		return err
	}

	p.logger.WithField("address", addr.String()).Info("connecting")
	client, err := ble.Dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	p.client = client
	defer func() {
		if err := client.CancelConnection(); err != nil {
			p.logger.WithError(err).Debug("cancel connection")
		}
	}()

	if _, err := client.DiscoverProfile(true); err != nil {
		return fmt.Errorf("discover profile: %w", err)
	}

	return p.configureNotifications(ctx)
}

// search scans until an advertisement matches the wearable's name.
func (p *Probe) search(ctx context.Context) (ble.Addr, error) {
	p.logger.WithField("prefix", p.namePrefix).Info("searching for device")

	scanCtx, cancel := context.WithTimeout(ctx, p.scanTimeout)
	defer cancel()

	found := make(chan ble.Addr, 1)
	err := ble.Scan(scanCtx, false, func(adv ble.Advertisement) {
		if !bluetooth.MatchesPeer(adv.LocalName(), p.namePrefix) {
			return
		}
		p.logger.WithFields(logrus.Fields{
			"address": adv.Addr().String(),
			"name":    adv.LocalName(),
			"rssi":    adv.RSSI(),
		}).Debug("found our device")
		select {
		case found <- adv.Addr():
			cancel()
		default:
		}
	}, nil)

	select {
	case addr := <-found:
		return addr, nil
	default:
	}
	if err != nil && scanCtx.Err() == nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return nil, fmt.Errorf("no device matching %q found", p.namePrefix)
}

// configureNotifications subscribes to the vendor communication
// characteristic and sends the device info request.
func (p *Probe) configureNotifications(ctx context.Context) error {
	char, err := p.findCharacteristic(bluetooth.CharDeviceCommunication)
	if err != nil {
		return err
	}

	err = p.client.Subscribe(char, false, func(data []byte) {
		p.logger.WithFields(logrus.Fields{
			"len":  len(data),
			"data": fmt.Sprintf("% 02x", data),
		}).Info("device frame")
	})
	if err != nil {
		return fmt.Errorf("enable notifications: %w", err)
	}

	if err := p.writer.Write(ctx, bluetooth.CharDeviceCommunication, bluetooth.DeviceInfoRequest); err != nil {
		return fmt.Errorf("send device info request: %w", err)
	}

	p.logger.Info("device info request sent")
	return nil
}

// findCharacteristic locates a characteristic in the discovered profile
// by normalized UUID.
func (p *Probe) findCharacteristic(uuid string) (*ble.Characteristic, error) {
	if p.client == nil || p.client.Profile() == nil {
		return nil, bluetooth.ErrNotConnected
	}
	want := bluetooth.NormalizeUUID(uuid)
	for _, svc := range p.client.Profile().Services {
		for _, char := range svc.Characteristics {
			if bluetooth.NormalizeUUID(char.UUID.String()) == want {
				return char, nil
			}
		}
	}
	return nil, &bluetooth.NotFoundError{Resource: "characteristic", UUID: uuid}
}
