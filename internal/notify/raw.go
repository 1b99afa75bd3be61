package notify

// Notification categories as tagged by the platform. The values mirror the
// category hints desktop and mobile notification daemons attach to payloads.
const (
	CategoryAlarm   = "alarm"
	CategoryCall    = "call"
	CategoryEmail   = "email"
	CategoryEvent   = "event"
	CategoryMessage = "msg"
)

// RawNotification is one platform notification as delivered by the source.
// It lives for the duration of a single gate pass and is never persisted.
type RawNotification struct {
	ID        int
	Key       string
	SourceApp string

	// SourceName is the human-readable application name, when the source
	// provides one alongside the stable identifier.
	SourceName string

	Category string
	Title    string
	Text     string
	Summary  string
	SubText  string
	Ongoing  bool
	GroupKey string
	Extras   map[string]string
}

// UID returns the platform-assigned event identifier, if any.
func (r *RawNotification) UID() string {
	if r.Extras == nil {
		return ""
	}
	return r.Extras["UID"]
}
