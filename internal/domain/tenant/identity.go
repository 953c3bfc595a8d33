package tenant

import (
	"fmt"
	"regexp"
	"strings"
)

var identityRe = regexp.MustCompile(`^\+[0-9]{7,15}$`)

// NormalizeIdentity canonicalizes a phone-like network identity: spaces,
// dashes, and parentheses are stripped, and a leading 00 becomes +.
func NormalizeIdentity(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if strings.HasPrefix(cleaned, "00") {
		cleaned = "+" + cleaned[2:]
	}
	if cleaned != "" && cleaned[0] != '+' {
		cleaned = "+" + cleaned
	}

	if !identityRe.MatchString(cleaned) {
		return "", fmt.Errorf("malformed network identity %q", raw)
	}
	return cleaned, nil
}
