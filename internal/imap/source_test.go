package imap

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"assistant-inbox/internal/models"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	messages  map[uint32]string
	uids      []uint32
	loginErr  error
	searchErr error

	connectedTo string
	selected    string
	query       models.SearchQuery
	fetched     []uint32
	seen        []uint32
	closed      bool
}

func (f *fakeClient) Connect(server string) error {
	f.connectedTo = server
	return nil
}

func (f *fakeClient) Login(user, password string) error { return f.loginErr }

func (f *fakeClient) SelectMailbox(name string) error {
	f.selected = name
	return nil
}

func (f *fakeClient) SearchUIDs(q models.SearchQuery, now time.Time) ([]uint32, error) {
	f.query = q
	return f.uids, f.searchErr
}

func (f *fakeClient) FetchMessage(uid uint32) (*imap.Message, error) {
	f.fetched = append(f.fetched, uid)
	raw, ok := f.messages[uid]
	if !ok {
		return nil, errors.New("no such message")
	}
	return &imap.Message{
		Uid: uid,
		Body: map[*imap.BodySectionName]imap.Literal{
			{}: bytes.NewBufferString(raw),
		},
	}, nil
}

func (f *fakeClient) MarkSeen(uid uint32) error {
	f.seen = append(f.seen, uid)
	return nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func newTestSource(fc *fakeClient) *Source {
	s := NewSource(models.EmailConfig{Imap: "imap.example.com:993", Login: "me", Password: "pw", MailBox: "INBOX"})
	s.newClient = func() Client { return fc }
	return s
}

func TestSourceFetchRaw(t *testing.T) {
	fc := &fakeClient{
		uids: []uint32{3, 7, 5},
		messages: map[uint32]string{
			7: "From: Jane <jane@example.com>\r\nSubject: Newest\r\n\r\nHello\r\n",
			5: "From: Bob <bob@example.com>\r\nSubject: Middle\r\n\r\nHi\r\n",
		},
	}
	src := newTestSource(fc)

	emails, err := src.FetchRaw(context.Background(), models.SearchQuery{Limit: 2, Sort: "newest", UnreadOnly: true})
	require.NoError(t, err)

	assert.Equal(t, "imap.example.com:993", fc.connectedTo)
	assert.Equal(t, "INBOX", fc.selected)
	assert.True(t, fc.query.UnreadOnly)
	assert.Equal(t, []uint32{7, 5}, fc.fetched)
	assert.True(t, fc.closed)

	require.Len(t, emails, 2)
	assert.Equal(t, "imap-7", emails[0].ID)
	assert.Contains(t, emails[0].Content, "Subject: Newest")
	assert.Equal(t, "imap-5", emails[1].ID)
}

func TestSourceFetchRawSkipsBrokenMessages(t *testing.T) {
	fc := &fakeClient{
		uids:     []uint32{1, 2},
		messages: map[uint32]string{1: "Subject: ok\r\n\r\nbody\r\n"},
	}

	emails, err := newTestSource(fc).FetchRaw(context.Background(), models.SearchQuery{})
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.Equal(t, "imap-1", emails[0].ID)
}

func TestSourceFetchRawErrors(t *testing.T) {
	loginFail := &fakeClient{loginErr: errors.New("bad credentials")}
	_, err := newTestSource(loginFail).FetchRaw(context.Background(), models.SearchQuery{})
	assert.ErrorContains(t, err, "login error")
	assert.True(t, loginFail.closed)

	searchFail := &fakeClient{searchErr: errors.New("search failed")}
	_, err = newTestSource(searchFail).FetchRaw(context.Background(), models.SearchQuery{})
	assert.Error(t, err)
	assert.True(t, searchFail.closed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newTestSource(&fakeClient{uids: []uint32{1}}).FetchRaw(ctx, models.SearchQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSourceMarkRead(t *testing.T) {
	fc := &fakeClient{}
	src := newTestSource(fc)

	require.NoError(t, src.MarkRead(context.Background(), "imap-12"))
	assert.Equal(t, []uint32{12}, fc.seen)
	assert.True(t, fc.closed)

	assert.Error(t, src.MarkRead(context.Background(), "email-abc"))
	assert.Error(t, src.MarkRead(context.Background(), "imap-0"))
	assert.Error(t, src.MarkRead(context.Background(), "imap-x"))
}

func TestSelectUIDs(t *testing.T) {
	uids := []uint32{4, 1, 9, 6}

	assert.Equal(t, []uint32{9, 6}, selectUIDs(uids, 2, "newest"))
	assert.Equal(t, []uint32{1, 4}, selectUIDs(uids, 2, "oldest"))
	assert.Equal(t, []uint32{9, 6, 4, 1}, selectUIDs(uids, 0, ""))
	assert.Equal(t, []uint32{4, 1, 9, 6}, uids, "input must not be reordered")
}

func TestBuildCriteria(t *testing.T) {
	now := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)

	c := buildCriteria(models.SearchQuery{
		Text:       "invoice",
		Days:       30,
		UnreadOnly: true,
		From:       "billing@example.com",
		To:         "me@example.com",
	}, now)

	assert.Equal(t, []string{imap.SeenFlag}, c.WithoutFlags)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), c.Since)
	assert.Equal(t, "billing@example.com", c.Header.Get("From"))
	assert.Equal(t, "me@example.com", c.Header.Get("To"))
	assert.Equal(t, []string{"invoice"}, c.Text)

	all := buildCriteria(models.SearchQuery{Text: "all"}, now)
	assert.Empty(t, all.WithoutFlags)
	assert.True(t, all.Since.IsZero())
	assert.Empty(t, all.Header)
	assert.Empty(t, all.Text)
}
