package extract

import (
	"strings"

	"github.com/derhofbauer/wristrelay/internal/notify"
)

// Gmail
//
// title=Sender Name
// text=Subject line
type gmailStrategy struct{}

func (gmailStrategy) supports(category string) bool {
	return category == notify.CategoryEmail
}

func (gmailStrategy) extract(msg *notify.Message, raw *notify.RawNotification) {
	msg.Primary = raw.Text
	msg.Secondary = raw.Title
}

// Inbox
//
// title=Subject, text=Preview. Grouped digests carry only a summary of the
// form "account • Category"; those become "<label> <Category>".
type inboxStrategy struct{}

func (inboxStrategy) supports(category string) bool {
	return category == notify.CategoryEmail
}

func (inboxStrategy) extract(msg *notify.Message, raw *notify.RawNotification) {
	msg.Primary = raw.Text
	msg.Secondary = raw.Title

	if msg.Primary != "" || msg.Secondary != "" {
		return
	}
	if _, after, found := strings.Cut(raw.Summary, " • "); found {
		msg.Primary = msg.Application + " " + after
		msg.Application = ""
	}
}

// Reddit
//
// title=u/username commented in "Post name"
// text=Some comment content
//
// Reddit doesn't set a category.
type redditStrategy struct{}

func (redditStrategy) supports(string) bool { return true }

func (redditStrategy) extract(msg *notify.Message, raw *notify.RawNotification) {
	const usernamePrefix = "u/"

	title := raw.Title
	if strings.HasPrefix(title, usernamePrefix) && len(title) > len(usernamePrefix) {
		msg.From = strings.SplitN(title, " ", 2)[0][len(usernamePrefix):]
		msg.Primary = raw.Text
		msg.Application = ""
		return
	}
	msg.Primary = title
}

// Signal
//
// title=Sender Name
// text=Message content
type signalStrategy struct{}

func (signalStrategy) supports(category string) bool {
	return category == notify.CategoryMessage
}

func (signalStrategy) extract(msg *notify.Message, raw *notify.RawNotification) {
	msg.From = raw.Title
	msg.Primary = raw.Text
}

// Telegram
//
// title=Firstname Lastname
// text=This is a message content
type telegramStrategy struct{}

func (telegramStrategy) supports(category string) bool {
	return category == notify.CategoryMessage
}

func (telegramStrategy) extract(msg *notify.Message, raw *notify.RawNotification) {
	if raw.Title != "" {
		msg.From = strings.SplitN(raw.Title, " ", 2)[0]
	}
	msg.Primary = raw.Text
	msg.Application = ""
}

// Twitter
//
// title=Firstname Lastname
// text=RT @handle: This is some text and then some more.
type twitterStrategy struct{}

func (twitterStrategy) supports(string) bool { return true }

func (twitterStrategy) extract(msg *notify.Message, raw *notify.RawNotification) {
	msg.From = raw.Title
	msg.Primary = raw.Text
}

// WhatsApp notifications sometimes arrive without a category, so the
// empty category is accepted alongside msg.
type whatsAppStrategy struct{}

func (whatsAppStrategy) supports(category string) bool {
	return category == "" || category == notify.CategoryMessage
}

func (whatsAppStrategy) extract(msg *notify.Message, raw *notify.RawNotification) {
	if raw.Title != "" {
		msg.From = strings.SplitN(raw.Title, " ", 2)[0]
	}
	msg.Primary = raw.Text
	msg.Application = ""
}

// fallbackStrategy announces the application without leaking content
// from sources we don't know how to parse.
type fallbackStrategy struct{}

func (fallbackStrategy) supports(string) bool { return true }

func (fallbackStrategy) extract(msg *notify.Message, raw *notify.RawNotification) {
	msg.Primary = msg.Application
	msg.Application = ""
}
