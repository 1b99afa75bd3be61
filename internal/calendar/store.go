package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/peterbourgon/diskv/v3"
	"github.com/sirupsen/logrus"
)

const (
	calendarKey = "calendar"
	counterKey  = "next-id"

	eventPrefix    = "event-"
	reminderPrefix = "reminder-"
)

// calendarRecord is the stored calendar identity.
type calendarRecord struct {
	ID           int64  `json:"id"`
	AccountName  string `json:"account_name"`
	OwnerAccount string `json:"owner_account"`
	DisplayName  string `json:"display_name"`
}

// Store is a diskv-backed Provider. It keeps the calendar, events and
// reminders as JSON values; an external sync layer picks them up from
// disk and mirrors them into the desktop calendar.
type Store struct {
	d      *diskv.Diskv
	logger *logrus.Logger

	mu sync.Mutex
}

var _ Provider = (*Store)(nil)

// NewStore opens the calendar store under basePath.
func NewStore(basePath string, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{
		d: diskv.New(diskv.Options{
			BasePath:     filepath.Join(basePath, "calendar"),
			CacheSizeMax: 256 * 1024,
		}),
		logger: logger,
	}
}

func (s *Store) EnsureCalendar(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if data, err := s.d.Read(calendarKey); err == nil {
		var rec calendarRecord
		if err := json.Unmarshal(data, &rec); err == nil && rec.ID > 0 {
			s.logger.WithField("id", rec.ID).Debug("found calendar")
			return rec.ID, nil
		}
	}

	id, err := s.nextIDLocked()
	if err != nil {
		return 0, err
	}
	rec := calendarRecord{
		ID:           id,
		AccountName:  AccountName,
		OwnerAccount: OwnerAccount,
		DisplayName:  DisplayName,
	}
	if err := s.writeJSONLocked(calendarKey, rec); err != nil {
		return 0, fmt.Errorf("create calendar: %w", err)
	}

	s.logger.WithField("id", id).Debug("created calendar")
	return id, nil
}

func (s *Store) InsertEvent(ctx context.Context, ev *Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.nextIDLocked()
	if err != nil {
		return 0, err
	}
	ev.ID = id
	if err := s.writeJSONLocked(eventPrefix+strconv.FormatInt(id, 10), ev); err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}

func (s *Store) InsertReminder(ctx context.Context, eventID int64, minutes int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.nextIDLocked()
	if err != nil {
		return 0, err
	}
	rem := Reminder{ID: id, EventID: eventID, Minutes: minutes}
	if err := s.writeJSONLocked(reminderPrefix+strconv.FormatInt(id, 10), rem); err != nil {
		return 0, fmt.Errorf("insert reminder: %w", err)
	}
	return id, nil
}

func (s *Store) DeleteEvent(ctx context.Context, eventID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.d.Erase(eventPrefix + strconv.FormatInt(eventID, 10)); err != nil {
		return fmt.Errorf("delete event %d: %w", eventID, err)
	}

	// drop attached reminders as well
	for key := range s.d.Keys(nil) {
		if !strings.HasPrefix(key, reminderPrefix) {
			continue
		}
		data, err := s.d.Read(key)
		if err != nil {
			continue
		}
		var rem Reminder
		if err := json.Unmarshal(data, &rem); err != nil {
			continue
		}
		if rem.EventID == eventID {
			if err := s.d.Erase(key); err != nil {
				s.logger.WithError(err).WithField("key", key).Warn("could not delete reminder")
			}
		}
	}
	return nil
}

func (s *Store) DeleteCalendar(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0)
	for key := range s.d.Keys(nil) {
		if key == counterKey {
			continue
		}
		keys = append(keys, key)
	}

	deleted := 0
	for _, key := range keys {
		if err := s.d.Erase(key); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("could not delete entry")
			continue
		}
		deleted++
	}
	return deleted, nil
}

// Events lists all stored events, for diagnostics.
func (s *Store) Events() ([]*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]*Event, 0)
	for key := range s.d.Keys(nil) {
		if !strings.HasPrefix(key, eventPrefix) {
			continue
		}
		data, err := s.d.Read(key)
		if err != nil {
			return nil, err
		}
		ev := &Event{}
		if err := json.Unmarshal(data, ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s *Store) nextIDLocked() (int64, error) {
	next := int64(1)
	if data, err := s.d.Read(counterKey); err == nil {
		if parsed, err := strconv.ParseInt(string(data), 10, 64); err == nil {
			next = parsed
		}
	}
	if err := s.d.Write(counterKey, []byte(strconv.FormatInt(next+1, 10))); err != nil {
		return 0, fmt.Errorf("advance id counter: %w", err)
	}
	return next, nil
}

func (s *Store) writeJSONLocked(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.d.Write(key, data)
}
