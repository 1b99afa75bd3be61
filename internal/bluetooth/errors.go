package bluetooth

import (
	"errors"
	"fmt"
)

// ConnectionState is the specific kind of connection state failure.
type ConnectionState string

const (
	NotConnected     ConnectionState = "not_connected"
	AlreadyConnected ConnectionState = "already_connected"
	Disabled         ConnectionState = "disabled"
)

// ConnectionError represents any connection-related problem.
type ConnectionError struct {
	State ConnectionState
	Msg   string
}

func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare ConnectionError values by state.
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

var (
	ErrNotConnected     = &ConnectionError{State: NotConnected}
	ErrAlreadyConnected = &ConnectionError{State: AlreadyConnected}
	ErrDisabled         = &ConnectionError{State: Disabled}

	// ErrWriteTimeout means the peer never acknowledged a write.
	ErrWriteTimeout = errors.New("write not acknowledged in time")
)

// NotFoundError reports a missing GATT resource.
type NotFoundError struct {
	Resource string // "service", "characteristic"
	UUID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.UUID)
}
