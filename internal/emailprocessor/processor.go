package emailprocessor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"assistant-inbox/internal/logging"
	"assistant-inbox/internal/mailparse"
	"assistant-inbox/internal/metrics"
	"assistant-inbox/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrUnknownEmail is returned by Select for ids that are not in the inbox
var ErrUnknownEmail = errors.New("unknown email")

// Source returns the raw email records of one fetch
type Source interface {
	FetchRaw(ctx context.Context, q models.SearchQuery) ([]models.RawEmail, error)
}

// ReadMarker is implemented by sources that can persist the read flag
type ReadMarker interface {
	MarkRead(ctx context.Context, id string) error
}

type Processor struct {
	source     Source
	sourceName string
	normalizer *mailparse.Normalizer
	metrics    *metrics.Metrics

	mu     sync.RWMutex
	emails []models.NormalizedEmail
}

// NewProcessor creates a new Processor reading from source. metrics may be nil.
func NewProcessor(source Source, sourceName string, normalizer *mailparse.Normalizer, m *metrics.Metrics) *Processor {
	if normalizer == nil {
		normalizer = mailparse.NewNormalizer()
	}
	return &Processor{
		source:     source,
		sourceName: sourceName,
		normalizer: normalizer,
		metrics:    m,
	}
}

// Refresh runs one fetch cycle:
// fetch → normalize each record → sort newest first → drop duplicate ids.
// On failure the inbox is left empty and the error is returned.
func (p *Processor) Refresh(ctx context.Context, q models.SearchQuery) error {
	started := time.Now()
	locallog := logging.Log.WithField("trace_id", uuid.New().String())

	raws, err := p.source.FetchRaw(ctx, q)
	if err != nil {
		p.replace(nil)
		p.observe(started, err)
		locallog.Errorf("Error fetching emails from %s: %v", p.sourceName, err)
		return fmt.Errorf("fetch emails: %w", err)
	}

	emails := make([]models.NormalizedEmail, 0, len(raws))
	for _, raw := range raws {
		emails = append(emails, p.normalizer.Normalize(raw))
	}
	if p.metrics != nil {
		p.metrics.EmailsNormalized.Add(float64(len(emails)))
	}

	emails = Deduplicate(SortNewestFirst(emails))
	p.replace(emails)
	p.observe(started, nil)

	locallog.WithFields(logrus.Fields{
		"source":      p.sourceName,
		"fetched":     len(raws),
		"email_count": len(emails),
	}).Info("Inbox refreshed")
	p.logInboxView()

	return nil
}

// Emails returns a copy of the current inbox, newest first
func (p *Processor) Emails() []models.NormalizedEmail {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]models.NormalizedEmail(nil), p.emails...)
}

// UnreadCount returns the number of emails not selected yet
func (p *Processor) UnreadCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return countUnread(p.emails)
}

// Select returns the email with the given id and marks it as read. Sources that
// implement ReadMarker are told as well; their failure is logged, not returned.
func (p *Processor) Select(ctx context.Context, id string) (models.NormalizedEmail, error) {
	p.mu.Lock()
	idx := -1
	for i := range p.emails {
		if p.emails[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		p.mu.Unlock()
		return models.NormalizedEmail{}, fmt.Errorf("%w: %s", ErrUnknownEmail, id)
	}
	wasRead := p.emails[idx].Read
	p.emails[idx].Read = true
	email := p.emails[idx]
	unread := countUnread(p.emails)
	p.mu.Unlock()

	if wasRead {
		return email, nil
	}

	if p.metrics != nil {
		p.metrics.EmailsRead.Inc()
		p.metrics.InboxUnread.Set(float64(unread))
	}

	if marker, ok := p.source.(ReadMarker); ok {
		if err := marker.MarkRead(ctx, id); err != nil {
			logging.Log.WithField("email_id", id).Errorf("Error marking email as read: %v", err)
		}
	}

	return email, nil
}

// SortNewestFirst orders emails by timestamp, newest first. Equal timestamps keep their order.
func SortNewestFirst(emails []models.NormalizedEmail) []models.NormalizedEmail {
	sort.SliceStable(emails, func(i, j int) bool {
		return emails[i].Timestamp > emails[j].Timestamp
	})
	return emails
}

// Deduplicate keeps the first email of each id. On a list sorted newest first that is the newest one.
func Deduplicate(emails []models.NormalizedEmail) []models.NormalizedEmail {
	seen := make(map[string]struct{}, len(emails))
	out := emails[:0]
	for _, e := range emails {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}

func (p *Processor) replace(emails []models.NormalizedEmail) {
	p.mu.Lock()
	p.emails = emails
	unread := countUnread(emails)
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.InboxEmails.Set(float64(len(emails)))
		p.metrics.InboxUnread.Set(float64(unread))
	}
}

func (p *Processor) observe(started time.Time, err error) {
	if p.metrics != nil {
		p.metrics.ObserveFetch(p.sourceName, started, err)
	}
}

// logInboxView emits the inbox view activity record
func (p *Processor) logInboxView() {
	p.mu.RLock()
	total, unread := len(p.emails), countUnread(p.emails)
	p.mu.RUnlock()

	logging.Log.WithFields(logrus.Fields{
		"activity":      "EmailInboxView",
		"component":     "EmailsPage",
		"email_count":   total,
		"unread_count":  unread,
		"currentFolder": "inbox",
	}).Info("Activity")
}

func countUnread(emails []models.NormalizedEmail) int {
	n := 0
	for _, e := range emails {
		if !e.Read {
			n++
		}
	}
	return n
}
