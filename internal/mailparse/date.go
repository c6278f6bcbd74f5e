package mailparse

import (
	"net/mail"
	"strconv"
	"strings"
	"time"
)

// isoLayout matches JavaScript's Date.toISOString output
const isoLayout = "2006-01-02T15:04:05.000Z"

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"January 2, 2006 15:04",
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
}

// parseDate reads a calendar date-time in the formats email headers and the backend use.
// Parenthetical comments such as "(UTC)" are ignored. All-digit values are epoch milliseconds.
func parseDate(value string) (time.Time, bool) {
	value = collapseSpaces(parenPattern.ReplaceAllString(value, ""))
	if value == "" {
		return time.Time{}, false
	}

	if isDigits(value) {
		ms, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms), true
	}

	if t, err := mail.ParseDate(value); err == nil {
		return t, true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

func isDigits(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) == -1
}
