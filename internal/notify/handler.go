package notify

// Result is the tri-state outcome of a delivery attempt.
type Result int

const (
	// ResultSuccess means the message was handed to the peer.
	ResultSuccess Result = iota
	// ResultDelayed means the peer is not ready; the message was latched
	// and will be flushed once a connection is established.
	ResultDelayed
	// ResultFailure means the message was dropped.
	ResultFailure
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultDelayed:
		return "delayed"
	case ResultFailure:
		return "failure"
	}
	return "unknown"
}

// Handler is a delivery transport for formatted notifications.
type Handler interface {
	AddNotification(msg *Message) Result
}

// EventChecker is implemented by transports that fabricate platform events
// and need to recognize the platform's own rendering of them.
type EventChecker interface {
	// IsOwnEvent reports whether an event-category notification was caused
	// by this transport. A positive answer consumes the matching signature.
	IsOwnEvent(uid, title, time string) bool
}

// InterruptionFilter mirrors the platform's do-not-disturb modes.
type InterruptionFilter int

const (
	FilterUnknown InterruptionFilter = iota
	FilterAll
	FilterPriority
	FilterNone
	FilterAlarms
)

// Platform exposes the read/command primitives the gate depends on.
type Platform interface {
	CurrentInterruptionFilter() InterruptionFilter
	IsInteractive() bool
	CancelNotification(key string)
}
