// Package storeerr holds the sentinel errors returned by every entity
// store implementation. They are already classified, so resolvers can
// hand them to clients unchanged.
package storeerr

import "github.com/dalemusser/schoolhub/internal/app/system/apperr"

var (
	// ErrNotFound means no active record matched.
	ErrNotFound = apperr.New(apperr.ReferenceNotFound, "record not found")

	ErrDuplicateEmail     = apperr.New(apperr.ConflictAlreadyExists, "a record with this email already exists")
	ErrDuplicateLongName  = apperr.New(apperr.ConflictAlreadyExists, "a school with this long name already exists")
	ErrDuplicateBrandName = apperr.New(apperr.ConflictAlreadyExists, "a school with this brand name already exists")
)
