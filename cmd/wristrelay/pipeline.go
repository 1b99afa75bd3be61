package main

import (
	"github.com/sirupsen/logrus"

	"github.com/derhofbauer/wristrelay/internal/bluetooth"
	"github.com/derhofbauer/wristrelay/internal/bluetooth/goble"
	"github.com/derhofbauer/wristrelay/internal/bluez"
	"github.com/derhofbauer/wristrelay/internal/calendar"
	"github.com/derhofbauer/wristrelay/internal/config"
	"github.com/derhofbauer/wristrelay/internal/dbusnotify"
	"github.com/derhofbauer/wristrelay/internal/extract"
	"github.com/derhofbauer/wristrelay/internal/listener"
	"github.com/derhofbauer/wristrelay/internal/notify"
	"github.com/derhofbauer/wristrelay/internal/settings"
)

// pipeline is the assembled daemon: notification source, gate, transports.
type pipeline struct {
	cfg      *config.Config
	logger   *logrus.Logger
	manager  *settings.Manager
	apps     *settings.AppStore
	calendar *calendar.Service
	listener *listener.Listener
}

// basePath resolves the storage root from the configuration.
func basePath(cfg *config.Config) (string, error) {
	if cfg.BasePath != "" {
		return cfg.BasePath, nil
	}
	return settings.DefaultBasePath()
}

// buildPipeline wires everything below the notification source.
func buildPipeline(cfg *config.Config, logger *logrus.Logger) (*pipeline, error) {
	base, err := basePath(cfg)
	if err != nil {
		return nil, err
	}

	manager, err := settings.NewManager(base)
	if err != nil {
		return nil, err
	}
	apps, err := settings.NewAppStore(base)
	if err != nil {
		return nil, err
	}

	platform, err := dbusnotify.NewPlatform(logger)
	if err != nil {
		return nil, err
	}

	calendarSvc := calendar.NewService(calendar.NewStore(base, logger), logger)
	gate := notify.NewGate(calendarSvc, platform, manager, apps, extract.NewRegistry(logger), logger)

	// A missing adapter only disables power tracking, not the daemon.
	var watcher listener.AdapterWatcher
	if aw, err := bluez.NewAdapterWatcher(cfg.Adapter, logger); err != nil {
		logger.WithError(err).Warn("adapter state tracking unavailable")
	} else {
		watcher = aw
	}

	newBluetooth := func() (listener.BluetoothTransport, error) {
		server := goble.NewAlertServer(cfg.Bluetooth.DeviceName, logger)
		return bluetooth.NewTransport(server, logger), nil
	}

	return &pipeline{
		cfg:      cfg,
		logger:   logger,
		manager:  manager,
		apps:     apps,
		calendar: calendarSvc,
		listener: listener.New(manager, gate, calendarSvc, newBluetooth, watcher, logger),
	}, nil
}
