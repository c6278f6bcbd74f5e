package mailparse

import (
	"time"

	"assistant-inbox/internal/logging"
	"assistant-inbox/internal/models"

	"github.com/google/uuid"
)

const (
	UnknownSender = "Unknown Sender"
	NoSubject     = "No Subject"
	NoContent     = "No content available"
)

// Normalizer turns loosely structured raw emails into complete NormalizedEmail records.
// It never fails: every field has a default.
type Normalizer struct {
	recipientFallback string
	now               func() time.Time
	newID             func() string
}

type Option func(*Normalizer)

// WithRecipientFallback sets the value used when no recipient can be derived
func WithRecipientFallback(to string) Option {
	return func(n *Normalizer) { n.recipientFallback = to }
}

// WithClock replaces time.Now, used for default dates
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// WithIDGenerator replaces the generator of ids for records without one
func WithIDGenerator(newID func() string) Option {
	return func(n *Normalizer) { n.newID = newID }
}

func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		now:   time.Now,
		newID: func() string { return "email-" + uuid.New().String() },
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var defaultNormalizer = NewNormalizer()

// Normalize normalizes raw with the default options
func Normalize(raw models.RawEmail) models.NormalizedEmail {
	return defaultNormalizer.Normalize(raw)
}

// Normalize builds a NormalizedEmail from raw. Records that already carry content and
// at least one of from/to/subject are taken as parsed; the rest are parsed from their
// MIME-like text.
func (n *Normalizer) Normalize(raw models.RawEmail) models.NormalizedEmail {
	text := raw.Text()

	email := models.NormalizedEmail{
		ID:          raw.ID,
		From:        raw.From,
		SenderEmail: raw.SenderEmail,
		To:          raw.To,
		Subject:     raw.Subject,
		Content:     text,
		Preview:     raw.Preview,
		RawContent:  text,
	}
	if email.ID == "" {
		email.ID = n.newID()
	}
	n.initialDate(&email, raw)

	if text != "" && (raw.From != "" || raw.To != "" || raw.Subject != "") {
		n.repairSender(&email, text)
	} else if text != "" {
		n.parseText(&email, text)
	}

	n.applyDefaults(&email)
	return email
}

// repairSender fills a missing sender of a pre-parsed record from a LinkedIn invitation
func (n *Normalizer) repairSender(email *models.NormalizedEmail, text string) {
	if email.From != "" && email.From != UnknownSender {
		return
	}
	if name, address, ok := linkedInSender(text); ok {
		email.From = name
		if address != "" {
			email.SenderEmail = address
		}
	}
}

func (n *Normalizer) parseText(email *models.NormalizedEmail, text string) {
	src := splitRaw(text)

	if name, address, ok := linkedInSender(text); ok {
		email.From = name
		if address != "" {
			email.SenderEmail = address
		}
	} else if value := firstMatch(fromStrategies, src); value != "" {
		name, address := splitSender(value)
		email.From = name
		if address != "" {
			email.SenderEmail = address
		}
	}

	if value := firstMatch(subjectStrategies, src); value != "" {
		email.Subject = cleanSubject(value)
	}

	if value := firstMatch(toStrategies, src); value != "" {
		email.To = cleanRecipient(value)
	}

	if value := firstMatch(dateStrategies, src); value != "" {
		if t, ok := parseDate(value); ok {
			email.Date = formatISO(t)
			email.Timestamp = t.UnixMilli()
		} else {
			logging.Log.WithField("email_id", email.ID).Warnf("Failed to parse date: %q", value)
		}
	}

	email.Content = extractBody(text)
}

// initialDate resolves date and timestamp from the supplied fields, keeping them
// consistent when only one of them is present. The default is the current time.
func (n *Normalizer) initialDate(email *models.NormalizedEmail, raw models.RawEmail) {
	if raw.Date != "" {
		if t, ok := parseDate(raw.Date); ok {
			email.Date = formatISO(t)
			email.Timestamp = raw.Timestamp
			if email.Timestamp == 0 {
				email.Timestamp = t.UnixMilli()
			}
			return
		}
		logging.Log.WithField("email_id", email.ID).Warnf("Failed to parse date: %q", raw.Date)
	}

	t := n.now()
	if raw.Timestamp > 0 {
		t = time.UnixMilli(raw.Timestamp)
	}
	email.Date = formatISO(t)
	email.Timestamp = t.UnixMilli()
}

func (n *Normalizer) applyDefaults(email *models.NormalizedEmail) {
	if email.From == "" {
		email.From = UnknownSender
	}
	if email.To == "" {
		email.To = n.recipientFallback
	}
	if email.Subject == "" {
		email.Subject = NoSubject
	}
	if email.Content == "" {
		email.Content = NoContent
		if email.Preview == "" {
			email.Preview = NoContent
		}
	}
	if email.Preview == "" {
		email.Preview = makePreview(email.Content)
	}
}
