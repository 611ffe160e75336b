// Package status holds the lifecycle values shared by users, schools and
// students. Records start Active; deletion is a soft flip to Deleted and
// is terminal.
package status

import "strings"

const (
	Active  = "active"
	Deleted = "deleted"
)

// IsValid reports whether s is a known status value.
func IsValid(s string) bool {
	switch s {
	case Active, Deleted:
		return true
	}
	return false
}

// Normalize lower-cases and trims s; unknown values map to "".
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !IsValid(s) {
		return ""
	}
	return s
}
