// internal/app/system/paging/paging.go
package paging

import (
	"github.com/dalemusser/schoolhub/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the default number of rows a list query returns.
const PageSize = 50

// MaxPageSize caps a single list request.
const MaxPageSize = 200

// Window is a validated offset/limit pair.
type Window struct {
	Limit  int64
	Offset int64
}

// Parse turns optional client-supplied limit and offset into a Window.
// A nil limit means PageSize; a nil offset means 0.
func Parse(limit, offset *int32) (Window, error) {
	w := Window{Limit: PageSize}
	if limit != nil {
		w.Limit = int64(*limit)
	}
	if offset != nil {
		w.Offset = int64(*offset)
	}
	if w.Limit < 1 || w.Limit > MaxPageSize {
		return Window{}, apperr.New(apperr.InvalidArgument, "limit must be between 1 and %d", MaxPageSize)
	}
	if w.Offset < 0 {
		return Window{}, apperr.New(apperr.InvalidArgument, "offset must not be negative")
	}
	return w, nil
}

// ApplyToFind sets skip and limit on find. Zero values leave the
// corresponding option unset.
func ApplyToFind(find *options.FindOptions, limit, offset int64) {
	if limit > 0 {
		find.SetLimit(limit)
	}
	if offset > 0 {
		find.SetSkip(offset)
	}
}

// Slice returns the window of rows, which must already be sorted.
// A non-positive limit returns everything after offset.
func Slice[T any](rows []T, limit, offset int64) []T {
	if offset >= int64(len(rows)) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < int64(len(rows)) {
		rows = rows[:limit]
	}
	return rows
}
