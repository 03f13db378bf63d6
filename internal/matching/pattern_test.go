package matching

import (
	"testing"
)

func TestExtractPattern(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"month with year", "Monthly Software Subscription Feb 2026", "monthly software subscription"},
		{"slash date", "Delivery 15/01/2026", "delivery"},
		{"iso date", "Service charge 2026-01-15", "service charge"},
		{"ordinal day", "Service fee - 1st Jan 2025", "service fee"},
		{"dangling preposition trimmed", "Subscription for the month of Jan 2026", "subscription for the month"},
		{"no temporal tokens", "CACTUSCRAFT CC - CHEMICALS", "cactuscraft cc chemicals"},
		{"units survive", "Sodium Hydroxide 50% Solution 25kg", "sodium hydroxide 50 solution 25kg"},
		{"date range", "Invoice period 01/01/2026 to 31/01/2026", "invoice period"},
		{"dotted date", "Hosting fee 15.01.2026", "hosting fee"},
		{"full month name", "RENEWAL JANUARY 2025", "renewal"},
		{"month with comma", "Billed December, 2025", "billed"},
		{"and is content", "Food and Beverages", "food and beverages"},
		{"double month range", "Pro Plan - Jan 2026 to Feb 2026", "pro plan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractPattern(tt.input); got != tt.want {
				t.Errorf("ExtractPattern(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractPatternFallback(t *testing.T) {
	// Stripping "Feb 2026" leaves nothing; the normalized original comes back
	// so the learned pattern is never a bare stopword or empty.
	if got := ExtractPattern("Feb 2026"); got != "feb 2026" {
		t.Errorf("expected fallback to normalized original, got %q", got)
	}

	// "For Jan 2026" strips to the stopword "for" alone.
	if got := ExtractPattern("For Jan 2026"); got != "for jan 2026" {
		t.Errorf("expected fallback for bare stopword result, got %q", got)
	}

	// A single content word is sufficient; no fallback.
	if got := ExtractPattern("Delivery 15/01/2026"); got != "delivery" {
		t.Errorf("single content word must not fall back, got %q", got)
	}
}

func TestExtractPatternEmpty(t *testing.T) {
	if got := ExtractPattern(""); got != "" {
		t.Errorf("expected empty pattern for empty input, got %q", got)
	}
	if got := ExtractPattern("   "); got != "" {
		t.Errorf("expected empty pattern for whitespace input, got %q", got)
	}
}
