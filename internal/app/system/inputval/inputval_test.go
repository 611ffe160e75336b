package inputval

import (
	"strings"
	"testing"
	"time"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		// Valid emails
		{"user@example.com", true},
		{"user.name@example.com", true},
		{"user+tag@example.com", true},
		{"user@subdomain.example.com", true},
		{"user123@example.co.uk", true},
		{"a@b.co", true},
		{"user@localhost", true},   // RFC 5322 allows single-label domains
		{"admin@mailserver", true}, // useful for dev/test environments

		// Invalid emails - empty/whitespace
		{"", false},
		{"   ", false},

		// Invalid emails - missing parts
		{"user", false},
		{"user@", false},
		{"@example.com", false},

		// Invalid emails - bad format
		{".user@example.com", false},      // leading dot in local
		{"user.@example.com", false},      // trailing dot in local
		{"user..name@example.com", false}, // consecutive dots
		{"user@.example.com", false},      // leading dot in domain
		{"user@example..com", false},      // consecutive dots in domain
		{"user@-example.com", false},      // label starts with hyphen

		// Invalid emails - display name format (should be rejected)
		{"User Name <user@example.com>", false},

		// Invalid emails - other malformed
		{"user @example.com", false}, // space in local
		{"user@ example.com", false}, // space after @
		{"user@exam ple.com", false}, // space in domain
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			got := IsValidEmail(tt.email)
			if got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestIsValidName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"John", true},
		{"Mary Ann", true},
		{"O'Neil", true},
		{"Jean-Luc", true},
		{"Zoë", true},
		{"J. R.", true},
		{"", false},
		{"123", false},
		{"John3", false},
		{"-John", false},
		{"<b>", false},
		{strings.Repeat("a", MaxNameLen+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidName(tt.name); got != tt.want {
				t.Errorf("IsValidName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestIsValidZipcode(t *testing.T) {
	tests := []struct {
		zip  string
		want bool
	}{
		{"75001", true},
		{"SW1A 1AA", true},
		{"12345-6789", true},
		{"1", false},
		{"", false},
		{"ABCDEFGHIJKL", false},
		{"750#1", false},
	}

	for _, tt := range tests {
		t.Run(tt.zip, func(t *testing.T) {
			if got := IsValidZipcode(tt.zip); got != tt.want {
				t.Errorf("IsValidZipcode(%q) = %v, want %v", tt.zip, got, tt.want)
			}
		})
	}
}

func TestIsValidPassword(t *testing.T) {
	if IsValidPassword("short") {
		t.Error("expected short password to be rejected")
	}
	if !IsValidPassword("long-enough") {
		t.Error("expected 11-char password to be accepted")
	}
	if IsValidPassword(strings.Repeat("x", MaxPasswordLen+1)) {
		t.Error("expected password over bcrypt limit to be rejected")
	}
}

func TestIsValidText(t *testing.T) {
	if IsValidText("   ") {
		t.Error("blank text should be invalid")
	}
	if !IsValidText("Springfield Elementary") {
		t.Error("school name should be valid")
	}
	if IsValidText(strings.Repeat("x", MaxTextLen+1)) {
		t.Error("overlong text should be invalid")
	}
}

func TestIsPastOrToday(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		d    time.Time
		want bool
	}{
		{"yesterday", now.AddDate(0, 0, -1), true},
		{"earlier today", time.Date(2024, 5, 10, 1, 0, 0, 0, time.UTC), true},
		{"later today", time.Date(2024, 5, 10, 23, 0, 0, 0, time.UTC), true},
		{"tomorrow", now.AddDate(0, 0, 1), false},
		{"next year", now.AddDate(1, 0, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPastOrToday(tt.d, now); got != tt.want {
				t.Errorf("IsPastOrToday(%v) = %v, want %v", tt.d, got, tt.want)
			}
		})
	}
}
