// Package normalize canonicalises user input before it is validated or stored.
package normalize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var strict = bluemonday.StrictPolicy()

// Email trims and lower-cases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims and collapses inner whitespace; case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TitleName is Name followed by title-casing ("mARY  ann" -> "Mary Ann").
func TitleName(s string) string {
	s = Name(s)
	if s == "" {
		return ""
	}
	return cases.Title(language.Und).String(s)
}

// Role lower-cases and trims a role name.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Text strips any markup from free text (addresses, school names) and
// collapses whitespace.
func Text(s string) string {
	return Name(html.UnescapeString(strict.Sanitize(s)))
}

// Zipcode upper-cases and trims a postal code.
func Zipcode(s string) string {
	return strings.ToUpper(Name(s))
}
