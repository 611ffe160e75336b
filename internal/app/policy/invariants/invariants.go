// Package invariants holds the cross-entity checks evaluated before a
// mutation is allowed to write.
//
// Rules:
//   - Emails (users, students) and school long/brand names are unique
//     among active records; names compare case- and diacritic-folded
//   - A school cannot be deleted while an active student references it
//   - The base "user" role can never be removed
//   - Nobody may delete their own account
//   - References must point at active records
//
// The predicates only read. The Require* helpers turn a failed predicate
// into a classified error for the resolver to return.
package invariants

import (
	"context"

	"github.com/dalemusser/schoolhub/internal/app/system/apperr"
	"github.com/dalemusser/schoolhub/internal/app/system/normalize"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is the read-only slice of the entity gateway the checks need.
type Store interface {
	FieldTaken(ctx context.Context, kind models.Kind, field, value string, excludeID *primitive.ObjectID) (bool, error)
	ExistsActive(ctx context.Context, kind models.Kind, id primitive.ObjectID) (bool, error)
	CountActiveStudentsBySchool(ctx context.Context, schoolID primitive.ObjectID) (int64, error)
}

// Unique fields, by kind. Each maps to the stored field it is compared on
// and the function that puts a value into stored form.
type uniqueField struct {
	stored string
	form   func(string) string
}

var uniqueFields = map[models.Kind]map[string]uniqueField{
	models.KindUser: {
		"email": {stored: "email", form: normalize.Email},
	},
	models.KindStudent: {
		"email": {stored: "email", form: normalize.Email},
	},
	models.KindSchool: {
		"long_name":  {stored: "long_name_ci", form: text.Fold},
		"brand_name": {stored: "brand_name_ci", form: text.Fold},
	},
}

// ProtectedRoles can never be removed from a user.
var ProtectedRoles = map[string]bool{models.RoleUser: true}

type Checker struct {
	store Store
}

func New(store Store) *Checker {
	return &Checker{store: store}
}

// backend makes sure an unclassified read failure surfaces as BackendUnavailable.
func backend(err error) error {
	if apperr.CodeOf(err) == apperr.Internal {
		return apperr.Unavailable(err)
	}
	return err
}

/*─────────────────────────────────────────────────────────────────────────────*
| Predicates                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// NameIsExist reports whether an active record of kind already has value
// in field, ignoring excludeID (the record being updated).
func (c *Checker) NameIsExist(ctx context.Context, kind models.Kind, field, value string, excludeID *primitive.ObjectID) (bool, error) {
	f, ok := uniqueFields[kind][field]
	if !ok {
		return false, apperr.New(apperr.InvalidArgument, "%s.%s is not a unique field", kind, field)
	}
	taken, err := c.store.FieldTaken(ctx, kind, f.stored, f.form(value), excludeID)
	if err != nil {
		return false, backend(err)
	}
	return taken, nil
}

// ReferentialBlock reports whether at least one active student has
// school_id == schoolID.
func (c *Checker) ReferentialBlock(ctx context.Context, schoolID primitive.ObjectID) (bool, error) {
	n, err := c.store.CountActiveStudentsBySchool(ctx, schoolID)
	if err != nil {
		return false, backend(err)
	}
	return n > 0, nil
}

// ExistsActive reports whether an active record of kind has this id.
func (c *Checker) ExistsActive(ctx context.Context, kind models.Kind, id primitive.ObjectID) (bool, error) {
	ok, err := c.store.ExistsActive(ctx, kind, id)
	if err != nil {
		return false, backend(err)
	}
	return ok, nil
}

// RoleIsProtected reports whether role is in the protected set.
func RoleIsProtected(role string) bool {
	return ProtectedRoles[role]
}

// SelfActionGuard reports whether actor and target are the same account.
func SelfActionGuard(actorID, targetID primitive.ObjectID) bool {
	return actorID == targetID
}

/*─────────────────────────────────────────────────────────────────────────────*
| Require helpers                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// RequireUnique fails with ConflictAlreadyExists when value is taken.
func (c *Checker) RequireUnique(ctx context.Context, kind models.Kind, field, value string, excludeID *primitive.ObjectID) error {
	taken, err := c.NameIsExist(ctx, kind, field, value, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return apperr.New(apperr.ConflictAlreadyExists, "a %s with this %s already exists", kind, humanField(field))
	}
	return nil
}

// RequireActive fails with ReferenceNotFound unless an active record of
// kind has this id.
func (c *Checker) RequireActive(ctx context.Context, kind models.Kind, id primitive.ObjectID) error {
	ok, err := c.ExistsActive(ctx, kind, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.ReferenceNotFound, "%s %s does not exist", kind, id.Hex())
	}
	return nil
}

// RequireNoActiveStudents fails with ReferentialBlock while any active
// student still belongs to schoolID.
func (c *Checker) RequireNoActiveStudents(ctx context.Context, schoolID primitive.ObjectID) error {
	blocked, err := c.ReferentialBlock(ctx, schoolID)
	if err != nil {
		return err
	}
	if blocked {
		return apperr.New(apperr.ReferentialBlock, "cannot delete a school that still has active students")
	}
	return nil
}

// RequireRemovableRole fails with Unauthorized for protected roles.
func RequireRemovableRole(role string) error {
	if RoleIsProtected(role) {
		return apperr.New(apperr.Unauthorized, "the %q role cannot be removed", role)
	}
	return nil
}

// RequireNotSelf fails with Unauthorized when actor targets itself.
func RequireNotSelf(actorID, targetID primitive.ObjectID) error {
	if SelfActionGuard(actorID, targetID) {
		return apperr.New(apperr.Unauthorized, "you cannot perform this action on your own account")
	}
	return nil
}

func humanField(field string) string {
	switch field {
	case "long_name":
		return "long name"
	case "brand_name":
		return "brand name"
	}
	return field
}
