package id

import (
	"strings"
	"testing"
)

func TestGenerate_Length(t *testing.T) {
	tests := []struct {
		name     string
		length   int
		expected int
	}{
		{"default on zero", 0, DefaultLength},
		{"default on negative", -5, DefaultLength},
		{"explicit length", 8, 8},
		{"long id", 32, 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Generate(tt.length)
			if err != nil {
				t.Fatalf("Generate(%d) error = %v", tt.length, err)
			}
			if len(got) != tt.expected {
				t.Errorf("Generate(%d) length = %d, want %d", tt.length, len(got), tt.expected)
			}
		})
	}
}

func TestGenerate_Alphabet(t *testing.T) {
	got, err := Generate(64)
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	for _, r := range got {
		if !strings.ContainsRune(alphabet, r) {
			t.Errorf("Generate produced %q outside the Base62 alphabet", r)
		}
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		got := MustGenerate(DefaultLength)
		if seen[got] {
			t.Fatalf("duplicate ID generated: %q", got)
		}
		seen[got] = true
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	got, err := GenerateWithPrefix(PrefixTenant, 10)
	if err != nil {
		t.Fatalf("GenerateWithPrefix error = %v", err)
	}
	if !strings.HasPrefix(got, "tn_") {
		t.Errorf("GenerateWithPrefix = %q, want tn_ prefix", got)
	}
	if len(got) != len("tn_")+10 {
		t.Errorf("GenerateWithPrefix length = %d, want %d", len(got), len("tn_")+10)
	}
}

func TestHasPrefix(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		prefix   string
		expected bool
	}{
		{"matching prefix", "tn_abc123", PrefixTenant, true},
		{"wrong prefix", "qe_abc123", PrefixTenant, false},
		{"no separator", "tnabc123", PrefixTenant, false},
		{"empty id", "", PrefixTenant, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasPrefix(tt.id, tt.prefix); got != tt.expected {
				t.Errorf("HasPrefix(%q, %q) = %v, want %v", tt.id, tt.prefix, got, tt.expected)
			}
		})
	}
}
