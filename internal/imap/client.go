package imap

import (
	"errors"
	"fmt"
	"net/textproto"
	"strings"
	"time"

	"assistant-inbox/internal/models"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// ErrNotConnected is returned by StandardClient methods called before Connect
var ErrNotConnected = errors.New("not connected")

type StandardClient struct {
	client  *client.Client
	timeout time.Duration
}

// NewStandardClient creates a new StandardClient with a default timeout of 30 seconds for IMAP operations
func NewStandardClient() *StandardClient {
	return &StandardClient{
		timeout: 30 * time.Second,
	}
}

// Connect establishes a secure connection to the IMAP server using TLS. It returns an error if the connection fails.
func (c *StandardClient) Connect(server string) error {
	cl, err := client.DialTLS(server, nil)
	if err != nil {
		return fmt.Errorf("IMAP connection error: %w", err)
	}
	c.client = cl
	return nil
}

// Login authenticates the user with the IMAP server using the provided username and password.
func (c *StandardClient) Login(user, password string) error {
	if c.client == nil {
		return ErrNotConnected
	}
	return c.client.Login(user, password)
}

// SelectMailbox selects the specified mailbox (e.g., "INBOX") for subsequent operations.
func (c *StandardClient) SelectMailbox(name string) error {
	if c.client == nil {
		return ErrNotConnected
	}
	_, err := c.client.Select(name, false)
	return err
}

// SearchUIDs returns the UIDs of the messages matching the query filters, in server order.
func (c *StandardClient) SearchUIDs(q models.SearchQuery, now time.Time) ([]uint32, error) {
	if c.client == nil {
		return nil, ErrNotConnected
	}

	uids, err := c.client.UidSearch(buildCriteria(q, now))
	if err != nil {
		return nil, fmt.Errorf("error searching emails: %w", err)
	}

	return uids, nil
}

// buildCriteria maps the search filters onto IMAP SEARCH keys. A query of "" or "all" matches everything.
func buildCriteria(q models.SearchQuery, now time.Time) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()

	if q.UnreadOnly {
		criteria.WithoutFlags = []string{imap.SeenFlag}
	}
	if q.Days > 0 {
		criteria.Since = now.Add(-time.Duration(q.Days) * 24 * time.Hour)
	}

	header := textproto.MIMEHeader{}
	if q.From != "" {
		header.Add("From", q.From)
	}
	if q.To != "" {
		header.Add("To", q.To)
	}
	if len(header) > 0 {
		criteria.Header = header
	}

	if text := strings.TrimSpace(q.Text); text != "" && !strings.EqualFold(text, "all") {
		criteria.Text = []string{text}
	}

	return criteria
}

// FetchMessage retrieves the full email message corresponding to the specified UID.
func (c *StandardClient) FetchMessage(uid uint32) (*imap.Message, error) {
	if c.client == nil {
		return nil, ErrNotConnected
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchInternalDate, imap.FetchUid, imap.FetchFlags}

	prevTimeout := c.client.Timeout
	c.client.Timeout = c.timeout
	defer func() { c.client.Timeout = prevTimeout }()

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- c.client.UidFetch(seqSet, items, messages)
	}()

	var msg *imap.Message
	for m := range messages {
		msg = m
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("error fetching message UID %d: %w", uid, err)
	}

	if msg == nil {
		return nil, fmt.Errorf("no message retrieved for UID %d", uid)
	}

	return msg, nil
}

// MarkSeen marks the email with the specified UID as seen (read) on the IMAP server.
func (c *StandardClient) MarkSeen(uid uint32) error {
	if c.client == nil {
		return ErrNotConnected
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}

	return c.client.UidStore(seqSet, item, flags, nil)
}

// Close logs out from the IMAP server and closes the connection. If there is no active connection, it simply returns nil.
func (c *StandardClient) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Logout()
}
