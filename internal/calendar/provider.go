// Package calendar is the fallback delivery transport: instead of talking
// to the wearable directly, it plants a short-lived calendar event with an
// alert-style reminder and lets the vendor companion app mirror it. The
// event is removed again right after the reminder fires.
package calendar

import (
	"context"
	"time"
)

// Identity of the calendar this transport owns. Events are only ever
// created in (and deleted from) a calendar matching all three values, so
// user calendars stay untouched.
const (
	OwnerAccount = "at.derhofbauer.wristrelay"
	AccountName  = "WristRelay"
	DisplayName  = "Steel HR"
)

const (
	// EventRemoveTimeout is how long an event lives before it is
	// deleted again. Long enough for the reminder to fire, short enough
	// to keep the calendar clean.
	EventRemoveTimeout = 30 * time.Second

	// EventEndOffset is the fake duration given to each event.
	EventEndOffset = time.Second

	// ReminderMinutes is the alert lead time. The companion app fires
	// the on-wrist notification when the reminder triggers.
	ReminderMinutes = 2
)

// Event is one planted calendar entry.
type Event struct {
	ID         int64     `json:"id"`
	CalendarID int64     `json:"calendar_id"`
	Title      string    `json:"title"`
	Location   string    `json:"location"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// Reminder is an alert attached to an event.
type Reminder struct {
	ID      int64 `json:"id"`
	EventID int64 `json:"event_id"`
	Minutes int   `json:"minutes"`
}

// Provider is the calendar storage backend.
type Provider interface {
	// EnsureCalendar finds the transport's calendar or creates it,
	// returning its id.
	EnsureCalendar(ctx context.Context) (int64, error)

	// InsertEvent stores an event and returns its assigned id.
	InsertEvent(ctx context.Context, ev *Event) (int64, error)

	// InsertReminder attaches a reminder to an event and returns its id.
	InsertReminder(ctx context.Context, eventID int64, minutes int) (int64, error)

	// DeleteEvent removes an event and its reminders.
	DeleteEvent(ctx context.Context, eventID int64) error

	// DeleteCalendar removes the transport's calendar with everything in
	// it and reports how many entries went away.
	DeleteCalendar(ctx context.Context) (int, error)
}
