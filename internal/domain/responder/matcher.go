// Package responder implements keyword matching of inbound message text
// against a tenant's ordered responder entries.
package responder

import (
	"fmt"
	"regexp"
	"strings"
)

// Entry is one configured trigger → reply pair. Entries are evaluated in
// stored order; position in the list is a deliberate priority.
type Entry struct {
	Keywords []string `json:"keywords"`
	Reply    string   `json:"reply"`
	Category string   `json:"category,omitempty"`
}

// Match is the outcome of evaluating a message against a tenant's entries.
type Match struct {
	Reply    string
	Category string
	Matched  bool
}

var (
	punctRe      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Normalize lowercases the text, strips punctuation, and collapses runs of
// whitespace to single spaces.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = punctRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// MatchMessage returns the reply for the first entry whose first matching
// keyword passes one of three tests: exact equality, substring containment
// in either direction, or a whole-word match. No entry matching returns
// defaultReply with Matched false.
func MatchMessage(text string, entries []Entry, defaultReply string) Match {
	normalized := Normalize(text)

	if normalized != "" {
		for _, entry := range entries {
			for _, keyword := range entry.Keywords {
				if keywordMatches(normalized, Normalize(keyword)) {
					return Match{Reply: entry.Reply, Category: entry.Category, Matched: true}
				}
			}
		}
	}

	return Match{Reply: defaultReply}
}

func keywordMatches(text, keyword string) bool {
	if keyword == "" {
		return false
	}
	if text == keyword {
		return true
	}
	if strings.Contains(text, keyword) || strings.Contains(keyword, text) {
		return true
	}
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(keyword) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// DefaultReply builds the fallback answer when a tenant has not configured
// one, listing a few example topics drawn from its entries.
func DefaultReply(entries []Entry) string {
	topics := make([]string, 0, 3)
	for _, entry := range entries {
		if len(topics) == 3 {
			break
		}
		if entry.Category != "" {
			topics = append(topics, entry.Category)
		} else if len(entry.Keywords) > 0 {
			topics = append(topics, entry.Keywords[0])
		}
	}

	if len(topics) == 0 {
		return "Sorry, I didn't understand that. Please try rephrasing your question."
	}
	return fmt.Sprintf("Sorry, I didn't understand that. You can ask me about: %s.",
		strings.Join(topics, ", "))
}
