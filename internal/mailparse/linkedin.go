package mailparse

import (
	"regexp"
	"strings"
)

var (
	linkedInProfilePattern = regexp.MustCompile(`(?i)View profile:\s*https?://\S+/in/([^?/\s]+)`)
	linkedInVanityPattern  = regexp.MustCompile(`inviterVanityName=([^&\s]+)`)
)

const linkedInDomain = "linkedin.com"

// linkedInSender recognizes LinkedIn invitation emails. The inviter name comes from the
// profile slug; the address is synthesized from the inviterVanityName parameter when present.
func linkedInSender(text string) (name, address string, ok bool) {
	m := linkedInProfilePattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}

	name = titleWords(strings.ReplaceAll(m[1], "-", " "))
	if name == "" {
		return "", "", false
	}

	if v := linkedInVanityPattern.FindStringSubmatch(text); v != nil {
		address = v[1] + "@" + linkedInDomain
	}
	return name, address, true
}
