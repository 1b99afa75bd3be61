package notify

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/derhofbauer/wristrelay/internal/settings"
)

// GroupCooldown is the minimum interval between forwarded notifications
// sharing a group key. Groups firing more often than this are just nagging.
const GroupCooldown = 60 * time.Second

// Calendar providers whose event notifications may be self-inflicted by the
// calendar transport and must be intercepted before any other filtering.
var calendarSources = map[string]bool{
	"com.google.android.calendar": true,
	"com.android.calendar":        true,
	"org.gnome.Evolution":         true,
}

// platformPseudoApp is the platform's own pseudo source; its notifications
// are system chrome, never user content.
const platformPseudoApp = "android"

// Extractor turns a raw notification into a normalized message.
// Implementations must not perform I/O.
type Extractor interface {
	Extract(raw *RawNotification, label string) *Message
}

// Gate is the filtering pipeline between the platform notification source
// and the active delivery transport. It runs on the source's delivery
// goroutine and must never block: transports are required to return quickly,
// deferring slow work to their own workers.
type Gate struct {
	platform  Platform
	apps      *settings.AppStore
	extractor Extractor
	logger    *logrus.Logger

	mu      sync.Mutex
	handler Handler

	prefDoNotDisturb bool
	prefScreenOn     bool

	groupShown map[string]time.Time
	now        func() time.Time
}

// NewGate wires a gate to its collaborators and subscribes to the
// do-not-disturb and screen-on preferences, seeding from current values.
func NewGate(handler Handler, platform Platform, mgr *settings.Manager, apps *settings.AppStore, extractor Extractor, logger *logrus.Logger) *Gate {
	if logger == nil {
		logger = logrus.New()
	}

	g := &Gate{
		platform:   platform,
		apps:       apps,
		extractor:  extractor,
		logger:     logger,
		handler:    handler,
		groupShown: make(map[string]time.Time),
		now:        time.Now,
	}

	mgr.OnChangeImmediate(settings.PrefDoNotDisturb, func(value string) {
		g.mu.Lock()
		g.prefDoNotDisturb = settings.ParseBool(value)
		g.mu.Unlock()
		logger.WithField("value", value).Debug("do-not-disturb preference")
	})
	mgr.OnChangeImmediate(settings.PrefScreenOn, func(value string) {
		g.mu.Lock()
		g.prefScreenOn = settings.ParseBool(value)
		g.mu.Unlock()
		logger.WithField("value", value).Debug("screen-on preference")
	})

	return g
}

// SetHandler swaps the active delivery transport.
func (g *Gate) SetHandler(h Handler) {
	g.mu.Lock()
	g.handler = h
	g.mu.Unlock()
}

// Deliver hands a message straight to the active transport, bypassing all
// filtering. Used for test notifications.
func (g *Gate) Deliver(msg *Message) Result {
	g.mu.Lock()
	handler := g.handler
	g.mu.Unlock()

	return handler.AddNotification(msg)
}

// Handle filters one raw notification and forwards survivors to the active
// transport. Errors never propagate to the caller; one bad notification
// must not take down the listener.
func (g *Gate) Handle(raw *RawNotification) {
	log := g.logger.WithFields(logrus.Fields{
		"id":     raw.ID,
		"source": raw.SourceApp,
	})

	if raw.ID < 0 {
		log.Debug("bogus negative id, skipping")
		return
	}

	if raw.Ongoing {
		// only forward "real" notifications
		log.Debug("ongoing, skipping")
		return
	}

	if raw.SourceApp == platformPseudoApp {
		log.Debug("platform pseudo app, skipping")
		return
	}

	// Always intercept event notifications before checking preferences,
	// otherwise a self-created calendar event could loop back in.
	if g.isEventNotification(raw) {
		g.handleEventNotification(raw)
		log.Debug("handled event notification")
		return
	}

	g.mu.Lock()
	dnd := g.prefDoNotDisturb
	screenOn := g.prefScreenOn
	handler := g.handler
	g.mu.Unlock()

	if dnd && g.isInterruptionFiltered(raw) {
		log.WithField("filter", g.platform.CurrentInterruptionFilter()).Debug("interruption filtered, skipping")
		return
	}

	if screenOn && g.platform.IsInteractive() {
		// the user is already looking at the screen
		log.Debug("device interactive, skipping")
		return
	}

	pref := g.apps.GetOrInit(raw.SourceApp, raw.SourceName)
	if !pref.Enabled() {
		log.Debug("source app disabled, skipping")
		return
	}

	if g.groupShouldSkip(raw.GroupKey) {
		log.WithField("group", raw.GroupKey).Debug("group cooldown not reached, skipping")
		return
	}

	msg := g.extractor.Extract(raw, pref.Label())
	if msg != nil {
		result := handler.AddNotification(msg)
		log.WithField("result", result).Debug("notification forwarded")
	}

	g.cleanupGroups()
}

func (g *Gate) isEventNotification(raw *RawNotification) bool {
	return raw.Category == CategoryEvent && calendarSources[raw.SourceApp]
}

// handleEventNotification cancels an event notification back to the
// platform if the calendar transport recognizes it as its own.
func (g *Gate) handleEventNotification(raw *RawNotification) {
	g.mu.Lock()
	handler := g.handler
	g.mu.Unlock()

	checker, ok := handler.(EventChecker)
	if !ok {
		return
	}
	if checker.IsOwnEvent(raw.UID(), raw.Title, raw.Text) {
		g.logger.WithField("id", raw.ID).Debug("own event, cancelling notification")
		g.platform.CancelNotification(raw.Key)
	}
}

func (g *Gate) isInterruptionFiltered(raw *RawNotification) bool {
	switch filter := g.platform.CurrentInterruptionFilter(); filter {
	case FilterAll, FilterUnknown:
		return false
	case FilterNone:
		return true
	case FilterAlarms:
		if raw.Category == CategoryAlarm {
			g.logger.Debug("notification is an alarm, should probably not filter")
		}
		return true
	case FilterPriority:
		// priority rules are not differentiated yet
		return false
	default:
		g.logger.WithField("filter", filter).Warn("unknown interruption filter")
		return false
	}
}

// groupShouldSkip reports whether a grouped notification is inside its
// cooldown window. The last-shown timestamp is refreshed on every sighting,
// dropped or not.
func (g *Gate) groupShouldSkip(groupKey string) bool {
	if groupKey == "" {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	lastShown, known := g.groupShown[groupKey]
	g.groupShown[groupKey] = now

	if !known {
		return false
	}
	return lastShown.Add(GroupCooldown).After(now)
}

// cleanupGroups sweeps stale group cooldown entries. Amortized on the
// notification path rather than run as a background task.
func (g *Gate) cleanupGroups() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for key, lastShown := range g.groupShown {
		if lastShown.Add(GroupCooldown).Before(now) {
			delete(g.groupShown, key)
		}
	}
}
