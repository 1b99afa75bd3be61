package dbusnotify

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derhofbauer/wristrelay/internal/notify"
)

func notifyCall(appName string, replacesID uint32, summary, body string, hints map[string]dbus.Variant) *dbus.Message {
	return &dbus.Message{
		Type: dbus.TypeMethodCall,
		Headers: map[dbus.HeaderField]dbus.Variant{
			dbus.FieldInterface: dbus.MakeVariant(notificationsIface),
			dbus.FieldMember:    dbus.MakeVariant("Notify"),
		},
		Body: []interface{}{
			appName, replacesID, "", summary, body,
			[]string{}, hints, int32(-1),
		},
	}
}

func TestRawFromMessage(t *testing.T) {
	m := &Monitor{}

	raw, ok := m.rawFromMessage(notifyCall("WhatsApp", 0, "Firstname Lastname", "This is a message", map[string]dbus.Variant{
		"desktop-entry": dbus.MakeVariant("com.whatsapp"),
		"category":      dbus.MakeVariant("im.received"),
	}))
	require.True(t, ok)

	assert.Equal(t, 1, raw.ID)
	assert.Equal(t, "com.whatsapp", raw.SourceApp)
	assert.Equal(t, notify.CategoryMessage, raw.Category)
	assert.Equal(t, "Firstname Lastname", raw.Title)
	assert.Equal(t, "This is a message", raw.Text)
	assert.Empty(t, raw.Key)
	assert.False(t, raw.Ongoing)
}

func TestRawFromMessageIDsIncrease(t *testing.T) {
	m := &Monitor{}

	first, ok := m.rawFromMessage(notifyCall("a", 0, "", "", nil))
	require.True(t, ok)
	second, ok := m.rawFromMessage(notifyCall("b", 0, "", "", nil))
	require.True(t, ok)

	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, second.ID)
}

func TestRawFromMessageReplacesIDBecomesKey(t *testing.T) {
	m := &Monitor{}

	raw, ok := m.rawFromMessage(notifyCall("Evolution", 42, "Meeting", "in 2 minutes", nil))
	require.True(t, ok)
	assert.Equal(t, "42", raw.Key)
}

func TestRawFromMessageFallsBackToAppName(t *testing.T) {
	m := &Monitor{}

	raw, ok := m.rawFromMessage(notifyCall("Signal", 0, "Alex", "hi", nil))
	require.True(t, ok)
	assert.Equal(t, "Signal", raw.SourceApp)
}

func TestRawFromMessageEventUID(t *testing.T) {
	m := &Monitor{}

	raw, ok := m.rawFromMessage(notifyCall("Evolution", 0, "Meeting", "", map[string]dbus.Variant{
		"desktop-entry":         dbus.MakeVariant("org.gnome.Evolution"),
		"category":              dbus.MakeVariant("x-gnome.calendar"),
		"x-evolution-event-uid": dbus.MakeVariant("7-1000-2000"),
	}))
	require.True(t, ok)

	assert.Equal(t, notify.CategoryEvent, raw.Category)
	assert.Equal(t, "7-1000-2000", raw.UID())
}

func TestRawFromMessageResidentIsOngoing(t *testing.T) {
	m := &Monitor{}

	raw, ok := m.rawFromMessage(notifyCall("Player", 0, "Now playing", "", map[string]dbus.Variant{
		"resident": dbus.MakeVariant(true),
	}))
	require.True(t, ok)
	assert.True(t, raw.Ongoing)
}

func TestRawFromMessageStackTagIsGroup(t *testing.T) {
	m := &Monitor{}

	raw, ok := m.rawFromMessage(notifyCall("App", 0, "", "", map[string]dbus.Variant{
		"x-dunst-stack-tag": dbus.MakeVariant("chat-123"),
	}))
	require.True(t, ok)
	assert.Equal(t, "chat-123", raw.GroupKey)
}

func TestRawFromMessageIgnoresOtherTraffic(t *testing.T) {
	m := &Monitor{}

	_, ok := m.rawFromMessage(nil)
	assert.False(t, ok)

	_, ok = m.rawFromMessage(&dbus.Message{Type: dbus.TypeSignal})
	assert.False(t, ok)

	msg := notifyCall("a", 0, "", "", nil)
	msg.Headers[dbus.FieldMember] = dbus.MakeVariant("CloseNotification")
	_, ok = m.rawFromMessage(msg)
	assert.False(t, ok)

	short := notifyCall("a", 0, "", "", nil)
	short.Body = short.Body[:3]
	_, ok = m.rawFromMessage(short)
	assert.False(t, ok)
}

func TestCategoryFromHints(t *testing.T) {
	cases := map[string]string{
		"im.received":      notify.CategoryMessage,
		"im":               notify.CategoryMessage,
		"email.arrived":    notify.CategoryEmail,
		"call.incoming":    notify.CategoryCall,
		"alarm":            notify.CategoryAlarm,
		"calendar.event":   notify.CategoryEvent,
		"x-gnome.calendar": notify.CategoryEvent,
		"transfer.error":   "transfer.error",
	}

	for input, expected := range cases {
		hints := map[string]dbus.Variant{"category": dbus.MakeVariant(input)}
		assert.Equal(t, expected, categoryFromHints(hints), "category %q", input)
	}

	assert.Empty(t, categoryFromHints(nil))
}

func TestFilterFromInhibited(t *testing.T) {
	assert.Equal(t, notify.FilterNone, filterFromInhibited(true))
	assert.Equal(t, notify.FilterAll, filterFromInhibited(false))
	assert.Equal(t, notify.FilterUnknown, filterFromInhibited("nonsense"))
	assert.Equal(t, notify.FilterUnknown, filterFromInhibited(nil))
}
