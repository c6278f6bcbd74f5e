package mailparse

import (
	"regexp"
	"strings"
	"unicode"
)

// rawText is the input of the header extraction strategies
type rawText struct {
	headers string
	full    string
}

func splitRaw(full string) rawText {
	headers := full
	if loc := blankLinePattern.FindStringIndex(full); loc != nil {
		headers = full[:loc[0]]
	}
	return rawText{headers: headers, full: full}
}

// extractor is one way of locating a field value. It returns "" when it finds nothing.
type extractor func(rawText) string

// firstMatch runs the strategies in order and returns the first non-empty value
func firstMatch(strategies []extractor, src rawText) string {
	for _, extract := range strategies {
		if v := strings.TrimSpace(extract(src)); v != "" {
			return v
		}
	}
	return ""
}

// headerChain is the three-tier lookup shared by every header field
func headerChain(name string) []extractor {
	return []extractor{
		headerBlockLine(name),
		lineStart(name),
		untilNextHeader(name),
	}
}

var (
	blankLinePattern  = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	angleAddrPattern  = regexp.MustCompile(`<[^>]*>`)
	parenPattern      = regexp.MustCompile(`\([^)]*\)`)
	nameAddrPattern   = regexp.MustCompile(`^\s*"?([^"]*?)"?\s*<([^>]+)>`)

	fromStrategies    = append(headerChain("From"), bareAddress)
	subjectStrategies = headerChain("Subject")
	toStrategies      = headerChain("To")
	dateStrategies    = headerChain("Date")
)

// headerBlockLine finds "Name:" at the start of a line in the header block and
// unfolds indented continuation lines.
func headerBlockLine(name string) extractor {
	prefix := name + ":"
	return func(src rawText) string {
		lines := strings.Split(src.headers, "\n")
		for i, line := range lines {
			line = strings.TrimRight(line, "\r")
			if len(line) < len(prefix) || !strings.EqualFold(line[:len(prefix)], prefix) {
				continue
			}
			value := strings.TrimSpace(line[len(prefix):])
			for _, next := range lines[i+1:] {
				next = strings.TrimRight(next, "\r")
				if next == "" || (next[0] != ' ' && next[0] != '\t') {
					break
				}
				value += " " + strings.TrimSpace(next)
			}
			return value
		}
		return ""
	}
}

// lineStart finds "Name:" at the start of any line of the full text
func lineStart(name string) extractor {
	re := regexp.MustCompile(`(?im)^` + regexp.QuoteMeta(name) + `:[ \t]*(.*)$`)
	return func(src rawText) string {
		for _, m := range re.FindAllStringSubmatch(src.full, -1) {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
		return ""
	}
}

// untilNextHeader finds "Name:" anywhere and reads up to the next "Key:" line,
// a blank line, or the end of the text.
func untilNextHeader(name string) extractor {
	re := regexp.MustCompile(`(?is)(?:^|[^\w-])` + regexp.QuoteMeta(name) + `:[ \t]*(.*?)(?:\r?\n\S+:|\r?\n[ \t]*\r?\n|\z)`)
	return func(src rawText) string {
		for _, m := range re.FindAllStringSubmatch(src.full, -1) {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
		return ""
	}
}

func bareAddress(src rawText) string {
	return extractEmailAddress(src.full)
}

// splitSender turns a From value into a display name and an address
func splitSender(value string) (name, address string) {
	value = decodeOrKeep(value)

	if m := nameAddrPattern.FindStringSubmatch(value); m != nil {
		name = strings.TrimSpace(m[1])
		address = strings.TrimSpace(m[2])
	} else {
		address = extractEmailAddress(value)
		rest := value
		if address != "" {
			rest = strings.Replace(rest, address, "", 1)
		}
		name = cleanDisplay(rest)
	}

	if name == "" && address != "" {
		name = nameFromAddress(address)
	}
	return name, address
}

// cleanDisplay strips bracketed addresses, parenthetical comments, quotes and
// extra whitespace.
func cleanDisplay(s string) string {
	s = angleAddrPattern.ReplaceAllString(s, "")
	s = parenPattern.ReplaceAllString(s, "")
	s = strings.Trim(s, " \t\r\n\"'")
	return collapseSpaces(s)
}

func cleanSubject(s string) string {
	s = decodeOrKeep(s)
	s = strings.TrimLeft(s, " \t\r\n\"'[")
	s = strings.TrimRight(s, " \t\r\n\"']")
	return collapseSpaces(s)
}

func cleanRecipient(s string) string {
	s = decodeOrKeep(s)
	if cleaned := cleanDisplay(s); cleaned != "" {
		return cleaned
	}
	// only bracketed addresses: keep the addresses themselves
	return strings.Join(emailAddressPattern.FindAllString(s, -1), ", ")
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// nameFromAddress builds "Jane Doe" from "jane.doe@example.com"
func nameFromAddress(address string) string {
	local, _, _ := strings.Cut(address, "@")
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	return titleWords(strings.Join(parts, " "))
}

// titleWords upper-cases the first character of every word and leaves the rest alone
func titleWords(s string) string {
	out := []rune(s)
	for i, r := range out {
		if isWordRune(r) && (i == 0 || !isWordRune(out[i-1])) {
			out[i] = unicode.ToUpper(r)
		}
	}
	return strings.TrimSpace(string(out))
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
