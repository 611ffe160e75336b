// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoleUser is the protected base role. Every user carries it and it can
// never be removed.
const RoleUser = "user"

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Roles lists every role a user may hold.
var Roles = []string{RoleUser, RoleAdmin, RoleStaff}

// User is an account that can sign in and act on the API.
//
// NOTE:
//   - Email is stored lower-cased; uniqueness is enforced only among
//     active users (partial unique index + pre-insert check).
//   - A deleted user keeps its document; Status flips to "deleted".
type User struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	FirstName    string             `bson:"first_name" json:"first_name"`
	LastName     string             `bson:"last_name" json:"last_name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Roles        []string           `bson:"roles" json:"roles"`
	Status       string             `bson:"status" json:"status"`

	CreatedBy primitive.ObjectID  `bson:"created_by" json:"created_by"`
	DeletedBy *primitive.ObjectID `bson:"deleted_by,omitempty" json:"deleted_by,omitempty"`
	DeletedAt *time.Time          `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time           `bson:"updated_at" json:"updated_at"`
}

// HasRole reports whether u holds role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// FullName joins first and last name.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// WithBaseRole returns roles with RoleUser first and duplicates removed.
func WithBaseRole(roles []string) []string {
	out := []string{RoleUser}
	seen := map[string]bool{RoleUser: true}
	for _, r := range roles {
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
