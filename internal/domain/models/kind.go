// internal/domain/models/kind.go
package models

// Kind names an entity collection. Gateway calls, invariant checks and
// error logs are keyed on it.
type Kind string

const (
	KindUser    Kind = "user"
	KindSchool  Kind = "school"
	KindStudent Kind = "student"
)

// Collection returns the MongoDB collection that stores records of this kind.
func (k Kind) Collection() string {
	switch k {
	case KindUser:
		return "users"
	case KindSchool:
		return "schools"
	case KindStudent:
		return "students"
	}
	return ""
}

// Valid reports whether k is one of the known entity kinds.
func (k Kind) Valid() bool {
	return k.Collection() != ""
}

// Kinds lists every entity kind in a stable order.
var Kinds = []Kind{KindUser, KindSchool, KindStudent}
