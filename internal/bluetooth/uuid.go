package bluetooth

import "strings"

// GATT identifiers of the alert notification contract. Short 16-bit forms
// are kept normalized (lowercase, no dashes) so lookups never depend on
// how a platform stack prints them.
const (
	// Alert Notification Service and its characteristics.
	ServiceAlertNotification         = "1811"
	CharAlertControlPoint            = "2a44"
	CharUnreadAlertStatus            = "2a45"
	CharNewAlert                     = "2a46"
	CharSupportedNewAlertCategory    = "2a47"
	CharSupportedUnreadAlertCategory = "2a48"

	// Vendor service the wearable exposes for setup, device info and
	// alert configuration.
	ServiceAlertConfiguration = "00000020574954480037000000000000"
	CharDeviceCommunication   = "00000023574954480037000000000000"

	DescClientCharacteristicConfiguration = "2902"
)

// sigBase is the Bluetooth SIG base UUID with the 16-bit slot zeroed,
// already in normalized form.
const (
	sigBasePrefix = "0000"
	sigBaseSuffix = "00001000800000805f9b34fb"
)

// NormalizeUUID converts a UUID string to the canonical internal form:
// lowercase, no dashes, no 0x prefix. Full 128-bit UUIDs in the SIG base
// range collapse to their 16-bit short form.
func NormalizeUUID(uuid string) string {
	s := strings.ToLower(strings.TrimSpace(uuid))
	s = strings.TrimPrefix(s, "0x")
	s = strings.ReplaceAll(s, "-", "")

	if len(s) == 32 && strings.HasPrefix(s, sigBasePrefix) && strings.HasSuffix(s, sigBaseSuffix) {
		return s[4:8]
	}
	return s
}

// ShortenUUID truncates long UUIDs for log output.
func ShortenUUID(uuid string) string {
	if len(uuid) > 8 {
		return uuid[:8]
	}
	return uuid
}
