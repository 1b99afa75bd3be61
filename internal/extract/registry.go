// Package extract normalizes raw notifications into display messages.
// Well-known applications get dedicated strategies that know where the
// interesting text hides; everything else goes through a fallback that
// only announces the application.
package extract

import (
	"github.com/sirupsen/logrus"

	"github.com/derhofbauer/wristrelay/internal/notify"
)

// Source application identifiers with dedicated strategies.
const (
	pkgGmail    = "com.google.android.gm"
	pkgInbox    = "com.google.android.apps.inbox"
	pkgReddit   = "com.reddit.frontpage"
	pkgSignal   = "org.thoughtcrime.securesms"
	pkgTelegram = "org.telegram.messenger"
	pkgTwitter  = "com.twitter.android"
	pkgWhatsApp = "com.whatsapp"
)

// strategy knows how one application structures its notifications.
type strategy interface {
	// supports reports whether notifications of this category carry
	// content worth forwarding.
	supports(category string) bool

	// extract fills msg from raw. msg arrives with Application set to the
	// source's display label; strategies may clear or replace it.
	extract(msg *notify.Message, raw *notify.RawNotification)
}

// Registry maps source applications to their extraction strategies.
type Registry struct {
	strategies map[string]strategy
	fallback   strategy
	logger     *logrus.Logger
}

// NewRegistry builds the registry with all known application strategies.
func NewRegistry(logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}

	return &Registry{
		strategies: map[string]strategy{
			pkgGmail:    gmailStrategy{},
			pkgInbox:    inboxStrategy{},
			pkgReddit:   redditStrategy{},
			pkgSignal:   signalStrategy{},
			pkgTelegram: telegramStrategy{},
			pkgTwitter:  twitterStrategy{},
			pkgWhatsApp: whatsAppStrategy{},
		},
		fallback: fallbackStrategy{},
		logger:   logger,
	}
}

// Extract normalizes one raw notification. A dedicated strategy that does
// not support the notification's category hands over to the fallback, so
// the application still gets announced.
func (r *Registry) Extract(raw *notify.RawNotification, label string) *notify.Message {
	strat, ok := r.strategies[raw.SourceApp]
	if !ok {
		strat = r.fallback
	}

	if !strat.supports(raw.Category) {
		r.logger.WithFields(logrus.Fields{
			"source":   raw.SourceApp,
			"category": raw.Category,
		}).Debug("category not supported, using fallback")
		strat = r.fallback
	}

	msg := &notify.Message{Application: label}
	strat.extract(msg, raw)

	if msg.Primary != "" {
		return msg
	}

	// just a few fallback tries
	r.logger.WithField("source", raw.SourceApp).Debug("no primary text extracted, falling back")
	for _, text := range []string{raw.Text, raw.Title, raw.Summary, raw.SubText} {
		if text != "" {
			msg.Primary = text
			break
		}
	}
	return msg
}
