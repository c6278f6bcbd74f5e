package imap

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"assistant-inbox/internal/logging"
	"assistant-inbox/internal/mailparse"
	"assistant-inbox/internal/models"
)

const idPrefix = "imap-"

// Source reads raw emails straight from an IMAP mailbox
type Source struct {
	cfg       models.EmailConfig
	newClient func() Client
	now       func() time.Time
}

// NewSource creates a Source for the configured mailbox
func NewSource(cfg models.EmailConfig) *Source {
	return &Source{
		cfg:       cfg,
		newClient: func() Client { return NewStandardClient() },
		now:       time.Now,
	}
}

// open connects, logs in and selects the mailbox. The caller closes the client.
func (s *Source) open() (Client, error) {
	client := s.newClient()

	if err := client.Connect(s.cfg.Imap); err != nil {
		return nil, err
	}
	if err := client.Login(s.cfg.Login, s.cfg.Password); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("login error: %w", err)
	}
	if err := client.SelectMailbox(s.cfg.MailBox); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("folder selection error: %w", err)
	}
	return client, nil
}

// FetchRaw searches the mailbox with the query filters and returns up to q.Limit messages
// as raw emails. Messages that cannot be fetched or parsed are skipped.
func (s *Source) FetchRaw(ctx context.Context, q models.SearchQuery) ([]models.RawEmail, error) {
	client, err := s.open()
	if err != nil {
		return nil, err
	}
	defer func(client Client) {
		_ = client.Close()
	}(client)

	uids, err := client.SearchUIDs(q, s.now())
	if err != nil {
		return nil, err
	}

	uids = selectUIDs(uids, q.Limit, q.Sort)

	emails := make([]models.RawEmail, 0, len(uids))
	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msg, err := client.FetchMessage(uid)
		if err != nil {
			logging.Log.Errorf("Error fetching email UID %d: %v", uid, err)
			continue
		}

		raw, err := mailparse.ParseRaw(msg)
		if err != nil {
			logging.Log.Errorf("Error parsing email UID %d: %v", uid, err)
			continue
		}
		emails = append(emails, *raw)
	}

	return emails, nil
}

// selectUIDs keeps the newest limit UIDs, or the oldest when sort is "oldest".
func selectUIDs(uids []uint32, limit int, order string) []uint32 {
	oldest := strings.EqualFold(order, "oldest")
	sorted := append([]uint32(nil), uids...)
	sort.Slice(sorted, func(i, j int) bool {
		if oldest {
			return sorted[i] < sorted[j]
		}
		return sorted[i] > sorted[j]
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// MarkRead sets the \Seen flag on the message behind an "imap-<uid>" id
func (s *Source) MarkRead(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := s.open()
	if err != nil {
		return err
	}
	defer func(client Client) {
		_ = client.Close()
	}(client)

	if err := client.MarkSeen(uid); err != nil {
		return fmt.Errorf("error marking message UID %d as seen: %w", uid, err)
	}
	return nil
}

func parseID(id string) (uint32, error) {
	if !strings.HasPrefix(id, idPrefix) {
		return 0, fmt.Errorf("not an IMAP email id: %q", id)
	}
	uid, err := strconv.ParseUint(strings.TrimPrefix(id, idPrefix), 10, 32)
	if err != nil || uid == 0 {
		return 0, fmt.Errorf("invalid IMAP email id %q", id)
	}
	return uint32(uid), nil
}
