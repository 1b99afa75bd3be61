package bluetooth

import "strings"

// DataMaxLen is the largest payload of a single write. BLE 4.x leaves 20
// bytes after the ATT header at the default MTU, and the wearable never
// negotiates a larger one.
const DataMaxLen = 20

// NewAlertMaxLen is the alert text budget: one write unit minus the two
// control bytes.
const NewAlertMaxLen = DataMaxLen - 2

// PeerNamePrefix is the advertised name prefix the wearable ships with.
const PeerNamePrefix = "Steel HR"

// Alert type and flag bytes of the wearable's alert protocol.
const (
	AlertCallStart byte = 0x03
	AlertCallEnd   byte = 0x04
	AlertMessage   byte = 0x05
	AlertEvent     byte = 0x07

	FlagEnabled  byte = 0x01
	FlagDisabled byte = 0x00
)

// SupportedAlerts lists the alert categories announced through the
// supported-category characteristics.
var SupportedAlerts = []byte{AlertCallStart, AlertMessage, AlertEvent, 0}

// DeviceInfoRequest is the opaque probe the companion app sends to the
// vendor characteristic right after enabling notifications. Captured from
// the wire; the last byte selects an information string.
var DeviceInfoRequest = []byte{
	0x01, 0x01, 0x01, 0x00, 0x10, // command: get info, length 16
	0x01, 0x2a, 0x00, 0x06, // command: get some more info, length 6
	0x01, 0x01, 0x00, 0x2e, 0x8b, 0xa1,
	0x09, 0x28, 0x00, 0x02, 0x00, 0x19,
}

// AlertData builds the wire payload for one alert: type byte, flag byte,
// then at most NewAlertMaxLen bytes of UTF-8 text. Truncation is done at
// the byte level here; the formatter already bounded the character count.
func AlertData(alertType byte, text string) []byte {
	flag := FlagEnabled
	if alertType == AlertCallEnd {
		flag = FlagDisabled
	}

	payload := []byte(text)
	if len(payload) > NewAlertMaxLen {
		payload = payload[:NewAlertMaxLen]
	}

	data := make([]byte, 0, 2+len(payload))
	data = append(data, alertType, flag)
	return append(data, payload...)
}

// CategoryBitfield folds alert type bytes into the uint16 bitfield served
// by the supported-category characteristics.
func CategoryBitfield(types []byte) uint16 {
	var field uint16
	for _, bit := range types {
		field |= 1 << bit
	}
	return field
}

// MatchesPeer reports whether an advertised device name identifies the
// wearable. The prefix is configurable to support renamed devices.
func MatchesPeer(localName, prefix string) bool {
	if prefix == "" {
		prefix = PeerNamePrefix
	}
	return strings.HasPrefix(localName, prefix)
}
