package responder

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "HELLO World", "hello world"},
		{"strip punctuation", "what's the price?", "whats the price"},
		{"collapse whitespace", "too   many\t spaces", "too many spaces"},
		{"trim", "  padded  ", "padded"},
		{"empty", "", ""},
		{"punctuation only", "?!...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMatchMessage_PriceScenario(t *testing.T) {
	entries := []Entry{
		{Keywords: []string{"price", "cost"}, Reply: "₦5,000/month", Category: "pricing"},
	}
	fallback := "Sorry, I didn't understand"

	got := MatchMessage("what's the price?", entries, fallback)
	if !got.Matched || got.Reply != "₦5,000/month" {
		t.Errorf("MatchMessage(price) = %+v, want matched ₦5,000/month", got)
	}
	if got.Category != "pricing" {
		t.Errorf("Category = %q, want pricing", got.Category)
	}

	got = MatchMessage("banana", entries, fallback)
	if got.Matched || got.Reply != fallback {
		t.Errorf("MatchMessage(banana) = %+v, want fallback", got)
	}
}

func TestMatchMessage_StoredOrderIsPriority(t *testing.T) {
	entries := []Entry{
		{Keywords: []string{"delivery"}, Reply: "first"},
		{Keywords: []string{"delivery", "shipping"}, Reply: "second"},
	}

	got := MatchMessage("how does delivery work", entries, "none")
	if got.Reply != "first" {
		t.Errorf("Reply = %q, want the earlier entry to win", got.Reply)
	}
}

func TestMatchMessage_SubstringBothDirections(t *testing.T) {
	entries := []Entry{
		{Keywords: []string{"opening hours"}, Reply: "9-5"},
	}

	// Keyword contained in text.
	if got := MatchMessage("what are your opening hours today", entries, "none"); !got.Matched {
		t.Error("keyword-in-text containment should match")
	}
	// Text contained in keyword.
	if got := MatchMessage("opening", entries, "none"); !got.Matched {
		t.Error("text-in-keyword containment should match")
	}
}

func TestMatchMessage_EmptyInput(t *testing.T) {
	entries := []Entry{
		{Keywords: []string{"a"}, Reply: "broad"},
	}

	got := MatchMessage("?!", entries, "fallback")
	if got.Matched {
		t.Errorf("punctuation-only input should not match, got %+v", got)
	}
}

func TestDefaultReply(t *testing.T) {
	tests := []struct {
		name     string
		entries  []Entry
		contains string
	}{
		{
			"uses categories",
			[]Entry{{Keywords: []string{"price"}, Category: "pricing"}},
			"pricing",
		},
		{
			"falls back to first keyword",
			[]Entry{{Keywords: []string{"delivery", "shipping"}}},
			"delivery",
		},
		{
			"no entries",
			nil,
			"rephrasing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultReply(tt.entries)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("DefaultReply() = %q, want it to mention %q", got, tt.contains)
			}
		})
	}
}

func TestDefaultReply_CapsTopics(t *testing.T) {
	entries := []Entry{
		{Category: "one"}, {Category: "two"}, {Category: "three"}, {Category: "four"},
	}
	got := DefaultReply(entries)
	if strings.Contains(got, "four") {
		t.Errorf("DefaultReply() = %q, want at most three topics", got)
	}
}
