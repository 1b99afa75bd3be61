package settings

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/peterbourgon/diskv/v3"
)

// Preference keys. Values are stored as strings; boolean preferences use
// "true"/"false" via ParseBool.
const (
	// PrefDoNotDisturb suppresses forwarding while the platform's
	// interruption filter is restrictive.
	PrefDoNotDisturb = "notifications.dnd"

	// PrefScreenOn suppresses forwarding while the user is interacting
	// with the device.
	PrefScreenOn = "notifications.screen-on"

	// PrefPeerName overrides the advertised name prefix used to recognize
	// the wearable during discovery.
	PrefPeerName = "bluetooth.peer-name"

	// PrefEnabled is the master switch for notification forwarding.
	PrefEnabled = "notifications.enabled"

	// PrefNotifier selects the delivery transport, one of NotifierCalendar
	// or NotifierBluetooth.
	PrefNotifier = "notifications.notifier"
)

// PrefNotifier values.
const (
	NotifierCalendar  = "calendar"
	NotifierBluetooth = "bluetooth"
)

// DefaultBasePath resolves the on-disk location of the settings store.
func DefaultBasePath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "wristrelay"), nil
}

// Manager is a persistent string preference store with change
// subscriptions. Reads are served from diskv's cache; writes hit disk
// synchronously so a crash never loses a toggled preference.
type Manager struct {
	d *diskv.Diskv

	mu        sync.RWMutex
	listeners map[string]map[int]func(string)
	nextID    int
}

// NewManager opens (or creates) the preference store under basePath.
func NewManager(basePath string) (*Manager, error) {
	if basePath == "" {
		var err error
		basePath, err = DefaultBasePath()
		if err != nil {
			return nil, err
		}
	}

	return &Manager{
		d: diskv.New(diskv.Options{
			BasePath:     filepath.Join(basePath, "prefs"),
			CacheSizeMax: 64 * 1024,
		}),
		listeners: make(map[string]map[int]func(string)),
	}, nil
}

// Get returns the stored value for key, or "" when unset.
func (m *Manager) Get(key string) string {
	data, err := m.d.Read(key)
	if err != nil {
		return ""
	}
	return string(data)
}

// GetDefault returns the stored value for key, or def when unset.
func (m *Manager) GetDefault(key, def string) string {
	if v := m.Get(key); v != "" {
		return v
	}
	return def
}

// Set persists a preference and notifies subscribers. Notification runs
// on the caller's goroutine; callbacks must be cheap.
func (m *Manager) Set(key, value string) error {
	if err := m.d.Write(key, []byte(value)); err != nil {
		return fmt.Errorf("persist preference %q: %w", key, err)
	}

	m.mu.RLock()
	subs := make([]func(string), 0, len(m.listeners[key]))
	for _, fn := range m.listeners[key] {
		subs = append(subs, fn)
	}
	m.mu.RUnlock()

	for _, fn := range subs {
		fn(value)
	}
	return nil
}

// OnChange subscribes to future changes of key. The returned function
// removes the subscription.
func (m *Manager) OnChange(key string, fn func(value string)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	if m.listeners[key] == nil {
		m.listeners[key] = make(map[int]func(string))
	}
	m.listeners[key][id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners[key], id)
		m.mu.Unlock()
	}
}

// OnChangeImmediate subscribes to key and additionally invokes fn with
// the current value before returning, so callers can seed their state
// and track updates with a single code path.
func (m *Manager) OnChangeImmediate(key string, fn func(value string)) func() {
	remove := m.OnChange(key, fn)
	fn(m.Get(key))
	return remove
}

// Keys lists every stored preference key.
func (m *Manager) Keys() []string {
	keys := make([]string, 0)
	for key := range m.d.Keys(nil) {
		keys = append(keys, key)
	}
	return keys
}

// ParseBool interprets a stored preference value as a boolean. Anything
// other than an affirmative value is false, including the unset "".
func ParseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "on", "1":
		return true
	}
	return false
}
