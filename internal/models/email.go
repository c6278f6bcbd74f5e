package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RawEmail is an inbound email record as returned by a source. Any field may be
// missing, and Content/Body may carry unparsed MIME-like text.
type RawEmail struct {
	ID          string `json:"id,omitempty"`
	From        string `json:"from,omitempty"`
	SenderEmail string `json:"senderEmail,omitempty"`
	To          string `json:"to,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Content     string `json:"content,omitempty"`
	Body        string `json:"body,omitempty"`
	Preview     string `json:"preview,omitempty"`
	Date        string `json:"date,omitempty"`
	Timestamp   int64  `json:"timestamp,omitempty"`
}

// Text returns Content, or Body when Content is empty.
func (r RawEmail) Text() string {
	if r.Content != "" {
		return r.Content
	}
	return r.Body
}

// UnmarshalJSON accepts loosely typed records: ids and dates may be numbers,
// timestamps may be strings or floats, unknown fields are ignored.
func (r *RawEmail) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*r = RawEmail{
		ID:          stringify(fields["id"]),
		From:        stringify(fields["from"]),
		SenderEmail: stringify(fields["senderEmail"]),
		To:          stringify(fields["to"]),
		Subject:     stringify(fields["subject"]),
		Content:     stringify(fields["content"]),
		Body:        stringify(fields["body"]),
		Preview:     stringify(fields["preview"]),
		Date:        stringify(fields["date"]),
	}

	switch v := fields["timestamp"].(type) {
	case float64:
		r.Timestamp = int64(v)
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			r.Timestamp = int64(n)
		}
	}

	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// NormalizedEmail is a fully populated email record ready for display.
// Read is the only field changed after construction.
type NormalizedEmail struct {
	ID          string `json:"id"`
	From        string `json:"from"`
	SenderEmail string `json:"senderEmail"`
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Content     string `json:"content"`
	Preview     string `json:"preview"`
	RawContent  string `json:"rawContent"`
	Date        string `json:"date"`
	Timestamp   int64  `json:"timestamp"`
	Read        bool   `json:"read"`
}

// Raw converts a normalized record back into an input record, so that it can be
// normalized again.
func (e NormalizedEmail) Raw() RawEmail {
	return RawEmail{
		ID:          e.ID,
		From:        e.From,
		SenderEmail: e.SenderEmail,
		To:          e.To,
		Subject:     e.Subject,
		Content:     e.Content,
		Preview:     e.Preview,
		Date:        e.Date,
		Timestamp:   e.Timestamp,
	}
}

// SearchQuery carries the filters of one fetch cycle.
type SearchQuery struct {
	Text       string
	Days       int
	Limit      int
	Sort       string
	UnreadOnly bool
	From       string
	To         string
}
