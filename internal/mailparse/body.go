package mailparse

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const previewLength = 200

var excessBlankLinesPattern = regexp.MustCompile(`\n(?:[ \t]*\n){2,}`)

// extractBody returns the text after the first blank line with quoted replies removed.
// It falls back to the untouched remainder, then to the whole text.
func extractBody(raw string) string {
	var remainder string
	if loc := blankLinePattern.FindStringIndex(raw); loc != nil {
		remainder = strings.TrimSpace(normalizeNewlines(raw[loc[1]:]))
	}

	if remainder == "" {
		return normalizeNewlines(raw)
	}

	if cleaned := cleanBody(remainder); cleaned != "" {
		return cleaned
	}
	return remainder
}

// cleanBody drops lines starting with ">" and collapses runs of blank lines into one
func cleanBody(text string) string {
	lines := strings.Split(normalizeNewlines(text), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(line, ">") {
			continue
		}
		kept = append(kept, line)
	}

	out := strings.Join(kept, "\n")
	out = excessBlankLinesPattern.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// makePreview cuts text to previewLength characters and marks the cut with "..."
func makePreview(text string) string {
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewLength]) + "..."
}
