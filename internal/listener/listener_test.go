package listener

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derhofbauer/wristrelay/internal/notify"
	"github.com/derhofbauer/wristrelay/internal/settings"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type fakePlatform struct{}

func (fakePlatform) CurrentInterruptionFilter() notify.InterruptionFilter { return notify.FilterAll }
func (fakePlatform) IsInteractive() bool                                  { return false }
func (fakePlatform) CancelNotification(key string)                        {}

type passthroughExtractor struct{}

func (passthroughExtractor) Extract(raw *notify.RawNotification, label string) *notify.Message {
	return &notify.Message{Application: label, Primary: raw.Text}
}

type recordingHandler struct {
	mu       sync.Mutex
	messages []*notify.Message
}

func (h *recordingHandler) AddNotification(msg *notify.Message) notify.Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
	return notify.ResultSuccess
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

type fakeTransport struct {
	recordingHandler

	mu      sync.Mutex
	enabled []bool
	stopped int
}

func (t *fakeTransport) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = append(t.enabled, enabled)
}

func (t *fakeTransport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped++
}

func (t *fakeTransport) enabledCalls() []bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]bool(nil), t.enabled...)
}

type fakeWatcher struct {
	onChange func(powered bool)
}

func (w *fakeWatcher) Watch(ctx context.Context, onChange func(powered bool)) error {
	w.onChange = onChange
	onChange(false)
	return nil
}

type fixture struct {
	listener  *Listener
	manager   *settings.Manager
	calendar  *recordingHandler
	transport *fakeTransport
	watcher   *fakeWatcher
	factory   *factoryState
}

type factoryState struct {
	calls int
	err   error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	manager, err := settings.NewManager(dir)
	require.NoError(t, err)
	apps, err := settings.NewAppStore(dir)
	require.NoError(t, err)
	require.NoError(t, apps.SetEnabled("com.whatsapp", true))

	calendar := &recordingHandler{}
	gate := notify.NewGate(calendar, fakePlatform{}, manager, apps, passthroughExtractor{}, quietLogger())

	transport := &fakeTransport{}
	factory := &factoryState{}
	watcher := &fakeWatcher{}

	l := New(manager, gate, calendar, func() (BluetoothTransport, error) {
		factory.calls++
		if factory.err != nil {
			return nil, factory.err
		}
		return transport, nil
	}, watcher, quietLogger())
	require.NoError(t, l.Start(context.Background()))

	return &fixture{
		listener:  l,
		manager:   manager,
		calendar:  calendar,
		transport: transport,
		watcher:   watcher,
		factory:   factory,
	}
}

func rawMessage(text string) *notify.RawNotification {
	return &notify.RawNotification{
		ID:        1,
		SourceApp: "com.whatsapp",
		Category:  notify.CategoryMessage,
		Text:      text,
	}
}

func TestDisabledByDefault(t *testing.T) {
	f := newFixture(t)

	assert.False(t, f.listener.Enabled())

	f.listener.Handle(rawMessage("hello"))
	assert.Zero(t, f.calendar.count())
}

func TestEnableForwardsThroughCalendar(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.manager.Set(settings.PrefEnabled, "true"))
	assert.True(t, f.listener.Enabled())

	f.listener.Handle(rawMessage("hello"))
	assert.Equal(t, 1, f.calendar.count())
	assert.Zero(t, f.factory.calls)
}

func TestNotifierSwitchToBluetooth(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.manager.Set(settings.PrefEnabled, "true"))
	require.NoError(t, f.manager.Set(settings.PrefNotifier, settings.NotifierBluetooth))

	assert.Equal(t, 1, f.factory.calls)

	f.listener.Handle(rawMessage("hello"))
	assert.Equal(t, 1, f.transport.count())
	assert.Zero(t, f.calendar.count())
}

func TestNotifierSwitchBackStopsTransport(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.manager.Set(settings.PrefEnabled, "true"))
	require.NoError(t, f.manager.Set(settings.PrefNotifier, settings.NotifierBluetooth))
	require.NoError(t, f.manager.Set(settings.PrefNotifier, settings.NotifierCalendar))

	f.transport.mu.Lock()
	stopped := f.transport.stopped
	f.transport.mu.Unlock()
	assert.Equal(t, 1, stopped)

	f.listener.Handle(rawMessage("hello"))
	assert.Equal(t, 1, f.calendar.count())
	assert.Zero(t, f.transport.count())
}

func TestTransportTracksAdapterPower(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.manager.Set(settings.PrefEnabled, "true"))
	require.NoError(t, f.manager.Set(settings.PrefNotifier, settings.NotifierBluetooth))

	// adapter was reported off during Start
	assert.Equal(t, []bool{false}, f.transport.enabledCalls())

	f.watcher.onChange(true)
	assert.Equal(t, []bool{false, true}, f.transport.enabledCalls())

	f.watcher.onChange(false)
	assert.Equal(t, []bool{false, true, false}, f.transport.enabledCalls())
}

func TestFactoryErrorFallsBackToCalendar(t *testing.T) {
	f := newFixture(t)
	f.factory.err = fmt.Errorf("no adapter")

	require.NoError(t, f.manager.Set(settings.PrefEnabled, "true"))
	require.NoError(t, f.manager.Set(settings.PrefNotifier, settings.NotifierBluetooth))

	f.listener.Handle(rawMessage("hello"))
	assert.Equal(t, 1, f.calendar.count())
}

func TestDisableStopsBluetooth(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.manager.Set(settings.PrefEnabled, "true"))
	require.NoError(t, f.manager.Set(settings.PrefNotifier, settings.NotifierBluetooth))
	require.NoError(t, f.manager.Set(settings.PrefEnabled, "false"))

	f.transport.mu.Lock()
	stopped := f.transport.stopped
	f.transport.mu.Unlock()
	assert.Equal(t, 1, stopped)

	f.listener.Handle(rawMessage("hello"))
	assert.Zero(t, f.transport.count())
	assert.Zero(t, f.calendar.count())
}

func TestNotifierChangeIgnoredWhileDisabled(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.manager.Set(settings.PrefNotifier, settings.NotifierBluetooth))
	assert.Zero(t, f.factory.calls)
}

func TestSendTestBypassesFilters(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.manager.Set(settings.PrefEnabled, "true"))

	result := f.listener.SendTest()
	assert.Equal(t, notify.ResultSuccess, result)
	require.Equal(t, 1, f.calendar.count())
	assert.Equal(t, "wristrelay", f.calendar.messages[0].Primary)
}
