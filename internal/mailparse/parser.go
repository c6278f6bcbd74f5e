package mailparse

import (
	"fmt"
	"io"
	"mime"
	"regexp"
	"strings"

	"assistant-inbox/internal/models"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

var (
	emailAddressPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	linkPattern         = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)
)

// ParseRaw rebuilds an IMAP message as MIME-like text (decoded header lines, a blank
// line, then the text body) so it flows through the same normalizer as backend records.
func ParseRaw(msg *imap.Message) (*models.RawEmail, error) {
	section := &imap.BodySectionName{}
	r := msg.GetBody(section)
	if r == nil {
		return nil, io.EOF
	}

	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, err
	}

	uid := msg.Uid
	if uid == 0 {
		uid = msg.SeqNum
	}

	raw := &models.RawEmail{
		ID: fmt.Sprintf("imap-%d", uid),
	}
	if !msg.InternalDate.IsZero() {
		raw.Timestamp = msg.InternalDate.UnixMilli()
	}

	var b strings.Builder
	for _, key := range []string{"From", "To", "Subject", "Date"} {
		value, err := mr.Header.Text(key)
		if err != nil {
			value = mr.Header.Get(key)
		}
		if value == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", key, value)
	}
	b.WriteString("\n")

	var plain, other string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			return nil, err
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, err := h.ContentType()
			if err != nil {
				continue
			}
			body, err := io.ReadAll(p.Body)
			if err != nil {
				continue
			}
			if contentType == "text/plain" && plain == "" {
				plain = string(body)
			} else if strings.HasPrefix(contentType, "text/") && other == "" {
				other = string(body)
			}
		}
	}

	if plain != "" {
		b.WriteString(plain)
	} else {
		b.WriteString(other)
	}

	raw.Content = b.String()
	return raw, nil
}

// extractEmailAddress returns the first email address found in s
func extractEmailAddress(s string) string {
	return emailAddressPattern.FindString(s)
}

// DecodeHeader decodes MIME-encoded headers (e.g., "=?UTF-8?B?...?=") to plain text
func DecodeHeader(encoded string) (string, error) {
	decoder := &mime.WordDecoder{CharsetReader: charset.Reader}
	decoded, err := decoder.DecodeHeader(encoded)
	if err != nil {
		return "", err
	}
	return decoded, nil
}

// decodeOrKeep decodes encoded words and falls back to the input on failure
func decodeOrKeep(s string) string {
	if !strings.Contains(s, "=?") {
		return s
	}
	decoded, err := DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}

// ExtractLinks uses a regex to find all URLs in the given text
func ExtractLinks(text string) []string {
	return linkPattern.FindAllString(text, -1)
}
