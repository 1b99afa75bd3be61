package calendar

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/derhofbauer/wristrelay/internal/groutine"
	"github.com/derhofbauer/wristrelay/internal/notify"
)

// timeKeyLayout renders the begin time the way notification daemons show
// it, so planted events can be recognized by title and time alone when no
// uid survives the round trip.
const timeKeyLayout = "3:04 PM"

// Service delivers notifications by planting calendar events. It
// implements both the delivery transport and the event-recognition check
// the gate uses to swallow the resulting calendar notifications.
type Service struct {
	provider Provider
	logger   *logrus.Logger

	mu         sync.Mutex
	calendarID int64
	retrieving bool
	waiters    []func(calendarID int64, err error)
	signatures map[string]struct{}

	removeAfter time.Duration
	now         func() time.Time
}

var (
	_ notify.Handler      = (*Service)(nil)
	_ notify.EventChecker = (*Service)(nil)
)

// NewService builds the calendar transport on top of a provider.
func NewService(provider Provider, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		provider:    provider,
		logger:      logger,
		signatures:  make(map[string]struct{}),
		removeAfter: EventRemoveTimeout,
		now:         time.Now,
	}
}

// AddNotification implements notify.Handler. The storage work happens on
// its own goroutine; the gate must never wait on it.
func (s *Service) AddNotification(msg *notify.Message) notify.Result {
	parts := msg.Strings()

	groutine.Go(context.Background(), "calendar-add-event", func(ctx context.Context) {
		s.addEvent(ctx, parts[0], parts[1])
	})
	return notify.ResultSuccess
}

// IsOwnEvent implements notify.EventChecker. Each recognition consumes
// the matching signature so one planted event swallows exactly one
// platform notification.
func (s *Service) IsOwnEvent(uid, title, eventTime string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if uid != "" {
		parts := strings.Split(uid, "-")
		if len(parts) > 2 {
			key := parts[0] + "-" + parts[1] + "-" + parts[2]
			if _, ok := s.signatures[key]; ok {
				delete(s.signatures, key)
				return true
			}
		}
	}

	if title != "" && eventTime != "" {
		key := title + "@" + eventTime
		if _, ok := s.signatures[key]; ok {
			delete(s.signatures, key)
			return true
		}
	}

	s.logger.WithFields(logrus.Fields{
		"uid":   uid,
		"title": title,
		"time":  eventTime,
	}).Debug("not our event")
	return false
}

// CleanUp deletes the transport's calendar with everything in it.
func (s *Service) CleanUp(ctx context.Context) error {
	s.mu.Lock()
	s.calendarID = 0
	s.mu.Unlock()

	deleted, err := s.provider.DeleteCalendar(ctx)
	if err != nil {
		return fmt.Errorf("delete calendar: %w", err)
	}
	s.logger.WithField("deleted", deleted).Debug("calendar cleaned up")
	return nil
}

// addEvent plants one event with its reminder and schedules its removal.
func (s *Service) addEvent(ctx context.Context, mainContent, secondaryContent string) {
	s.withCalendarID(ctx, func(calendarID int64, err error) {
		if err != nil {
			s.logger.WithError(err).Error("no calendar, can't add event")
			return
		}

		start := s.now().Add(time.Minute).Truncate(time.Minute)
		end := start.Add(EventEndOffset)

		ev := &Event{
			CalendarID: calendarID,
			Title:      mainContent,
			Location:   secondaryContent,
			Start:      start,
			End:        end,
		}
		eventID, err := s.provider.InsertEvent(ctx, ev)
		if err != nil {
			s.logger.WithError(err).Error("could not insert event")
			return
		}

		uid := fmt.Sprintf("%d-%d-%d", eventID, start.UnixMilli(), end.UnixMilli())
		timeKey := mainContent + "@" + start.Format(timeKeyLayout)

		s.mu.Lock()
		s.signatures[uid] = struct{}{}
		s.signatures[timeKey] = struct{}{}
		s.mu.Unlock()

		if _, err := s.provider.InsertReminder(ctx, eventID, ReminderMinutes); err != nil {
			s.logger.WithError(err).Error("could not insert reminder")
			return
		}

		s.logger.WithFields(logrus.Fields{
			"event":     eventID,
			"uid":       uid,
			"main":      mainContent,
			"secondary": secondaryContent,
		}).Debug("event added")

		time.AfterFunc(s.removeAfter, func() {
			s.removeEvent(eventID, uid, timeKey)
		})
	})
}

// removeEvent deletes a planted event and purges its signatures; by then
// the reminder has fired and nothing will reference them again.
func (s *Service) removeEvent(eventID int64, uid, timeKey string) {
	if err := s.provider.DeleteEvent(context.Background(), eventID); err != nil {
		s.logger.WithError(err).WithField("event", eventID).Error("could not delete event")
		return
	}

	s.mu.Lock()
	delete(s.signatures, uid)
	delete(s.signatures, timeKey)
	s.mu.Unlock()

	s.logger.WithField("event", eventID).Debug("event deleted")
}

// withCalendarID runs fn with the calendar id, resolving it on first use.
// Concurrent callers during resolution are queued and drained exactly
// once when the lookup finishes.
func (s *Service) withCalendarID(ctx context.Context, fn func(calendarID int64, err error)) {
	s.mu.Lock()
	if s.calendarID > 0 {
		id := s.calendarID
		s.mu.Unlock()
		fn(id, nil)
		return
	}

	s.waiters = append(s.waiters, fn)
	if s.retrieving {
		s.mu.Unlock()
		return
	}
	s.retrieving = true
	s.mu.Unlock()

	id, err := s.provider.EnsureCalendar(ctx)

	s.mu.Lock()
	if err == nil {
		s.calendarID = id
	}
	waiters := s.waiters
	s.waiters = nil
	s.retrieving = false
	s.mu.Unlock()

	for _, waiter := range waiters {
		waiter(id, err)
	}
}
