// Package inputval holds pure format rules for user-supplied fields.
// Callers normalize first (see package normalize) and validate second.
package inputval

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MaxNameLen     = 100
	MaxTextLen     = 200
	MinPasswordLen = 8
	MaxPasswordLen = 72 // bcrypt ignores bytes past 72
)

var (
	// local part: dot-atom without leading, trailing or doubled dots
	emailLocal = `[A-Za-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+(?:\.[A-Za-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+)*`
	// domain: one or more labels; single-label hosts are allowed for dev setups
	emailDomain = `[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?)*`
	emailRe     = regexp.MustCompile(`^` + emailLocal + `@` + emailDomain + `$`)

	// letters from any script, combining marks, spaces, apostrophes, hyphens and dots
	nameRe = regexp.MustCompile(`^[\p{L}\p{M}][\p{L}\p{M} '.\-]*$`)

	zipRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 \-]{1,9}$`)
)

// IsValidEmail reports whether s is a plain addr-spec (no display name).
func IsValidEmail(s string) bool {
	if s == "" || len(s) > 254 {
		return false
	}
	return emailRe.MatchString(s)
}

// IsValidName reports whether s is a plausible person name.
func IsValidName(s string) bool {
	if s == "" || utf8.RuneCountInString(s) > MaxNameLen {
		return false
	}
	return nameRe.MatchString(s)
}

// IsValidText reports whether s is non-blank free text within the length limit.
func IsValidText(s string) bool {
	return strings.TrimSpace(s) != "" && utf8.RuneCountInString(s) <= MaxTextLen
}

// IsValidZipcode accepts 2-10 alphanumerics with optional spaces or hyphens.
func IsValidZipcode(s string) bool {
	return zipRe.MatchString(s)
}

// IsValidPassword checks length bounds only; strength policy is not enforced.
func IsValidPassword(s string) bool {
	return len(s) >= MinPasswordLen && len(s) <= MaxPasswordLen
}

// IsValidObjectID reports whether s is a 24-char hex ObjectID.
func IsValidObjectID(s string) bool {
	return primitive.IsValidObjectID(s)
}

// IsPastOrToday reports whether d falls on or before now's calendar day (UTC).
func IsPastOrToday(d, now time.Time) bool {
	dy, dm, dd := d.UTC().Date()
	ny, nm, nd := now.UTC().Date()
	day := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return !day.After(today)
}
