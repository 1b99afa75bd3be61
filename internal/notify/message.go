package notify

import (
	"regexp"
	"strings"

	"github.com/forPelevin/gomoji"
)

const (
	// TextMaxLength is the character budget per formatted string. It equals
	// the BLE write unit (20 bytes) minus the two alert control bytes.
	TextMaxLength = 18

	// FromMaxLength bounds the sender prefix, keeping room for the text.
	FromMaxLength = 4
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Message is a normalized notification, immutable once built by an
// extractor and consumed exactly once by a transport.
type Message struct {
	Application string
	From        string
	Primary     string
	Secondary   string
}

// Strings builds the primary and secondary display strings.
//
// The length bookkeeping deliberately reproduces the peer device's observed
// behavior: lengths are sampled before the sender prefix is merged into the
// primary string, so the prefix can consume budget the later app-label step
// no longer sees. Tests pin exact character counts; do not "fix" the order.
func (m *Message) Strings() [2]string {
	from := cleanString(m.From)
	primary := cleanString(m.Primary)
	secondary := cleanString(m.Secondary)
	app := cleanString(m.Application)

	fromLen := runeLen(from)
	primaryLen := runeLen(primary)
	secondaryLen := runeLen(secondary)
	appLen := runeLen(app)

	if fromLen > 0 {
		if fromLen > FromMaxLength {
			from = string([]rune(from)[:FromMaxLength])
		}
		primary = truncateTrim(from+": "+primary, TextMaxLength)
	}

	if primaryLen > 9 && secondaryLen > 8 {
		primary = truncateTrim(primary, 9)
		secondary = truncateTrim(secondary, 8)
		primaryLen = runeLen(primary)
		secondaryLen = runeLen(secondary)
	}

	appPlusSecondary := appLen + secondaryLen + 2
	charsLeft := TextMaxLength - (primaryLen + appPlusSecondary)

	if charsLeft > 0 && appLen > 0 {
		if secondaryLen > 0 {
			if appPlusSecondary > charsLeft && appLen > charsLeft {
				app = string([]rune(app)[:charsLeft])
			}
			secondary = app + ": " + secondary
		} else {
			secondary = app
		}
		secondary = truncateTrim(secondary, TextMaxLength)
	}

	return [2]string{primary, secondary}
}

// String builds the combined single-string view used by transports that
// push one text field, e.g. the BLE alert characteristic.
func (m *Message) String() string {
	s := m.Strings()
	return truncateTrim(s[0]+" "+s[1], TextMaxLength)
}

// cleanString strips emoji glyphs (unsupported by the companion renderer),
// collapses whitespace runs including newlines to single spaces, and bounds
// the result to TextMaxLength characters. Idempotent.
func cleanString(s string) string {
	if s == "" {
		return ""
	}
	s = gomoji.RemoveEmojis(s)
	s = whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
	return truncateTrim(s, TextMaxLength)
}

// truncateTrim hard-truncates to length characters, then trims the
// whitespace truncation may have exposed.
func truncateTrim(s string, length int) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	if len(r) > length {
		r = r[:length]
	}
	return strings.TrimSpace(string(r))
}

func runeLen(s string) int {
	return len([]rune(s))
}
