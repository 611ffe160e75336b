package loaders

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Source is the read side of the entity store. Every method returns
// active records only, in any order.
type Source interface {
	FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	FindSchoolsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.School, error)
	FindStudentsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Student, error)
	FindStudentsBySchoolIDs(ctx context.Context, schoolIDs []primitive.ObjectID) ([]models.Student, error)
	FindStudentsByUserIDs(ctx context.Context, userIDs []primitive.ObjectID) ([]models.Student, error)
}

// Settings are the batch window knobs shared by every loader in a scope.
type Settings struct {
	Wait     time.Duration
	MaxBatch int
	Timeout  time.Duration
}

type ID = primitive.ObjectID

// Scope holds one loader per relation for a single request.
type Scope struct {
	SchoolByID       *Loader[ID, *models.School]
	StudentByID      *Loader[ID, *models.Student]
	UserByID         *Loader[ID, *models.User]
	StudentsBySchool *Loader[ID, []models.Student] // school -> its active students
	StudentByUser    *Loader[ID, *models.Student]  // user -> linked student
}

// NewScope builds a fresh set of loaders whose fetches run under ctx.
func NewScope(ctx context.Context, src Source, set Settings, log *zap.Logger) *Scope {
	cfg := func(name string) Config {
		return Config{Name: name, Wait: set.Wait, MaxBatch: set.MaxBatch, Timeout: set.Timeout, Log: log}
	}
	return &Scope{
		SchoolByID:       New(ctx, byID(src.FindSchoolsByIDs, func(s *models.School) ID { return s.ID }), cfg("school_by_id")),
		StudentByID:      New(ctx, byID(src.FindStudentsByIDs, func(s *models.Student) ID { return s.ID }), cfg("student_by_id")),
		UserByID:         New(ctx, byID(src.FindUsersByIDs, func(u *models.User) ID { return u.ID }), cfg("user_by_id")),
		StudentsBySchool: New(ctx, studentsBySchool(src), cfg("students_by_school")),
		StudentByUser:    New(ctx, studentByUser(src), cfg("student_by_user")),
	}
}

// byID adapts a FindXByIDs gateway call to a FetchFunc keyed on _id.
func byID[T any](find func(context.Context, []ID) ([]T, error), id func(*T) ID) FetchFunc[ID, *T] {
	return func(ctx context.Context, keys []ID) (map[ID]*T, error) {
		rows, err := find(ctx, keys)
		if err != nil {
			return nil, err
		}
		out := make(map[ID]*T, len(rows))
		for i := range rows {
			out[id(&rows[i])] = &rows[i]
		}
		return out, nil
	}
}

func studentsBySchool(src Source) FetchFunc[ID, []models.Student] {
	return func(ctx context.Context, keys []ID) (map[ID][]models.Student, error) {
		rows, err := src.FindStudentsBySchoolIDs(ctx, keys)
		if err != nil {
			return nil, err
		}
		out := make(map[ID][]models.Student, len(keys))
		for _, st := range rows {
			out[st.SchoolID] = append(out[st.SchoolID], st)
		}
		return out, nil
	}
}

func studentByUser(src Source) FetchFunc[ID, *models.Student] {
	return func(ctx context.Context, keys []ID) (map[ID]*models.Student, error) {
		rows, err := src.FindStudentsByUserIDs(ctx, keys)
		if err != nil {
			return nil, err
		}
		out := make(map[ID]*models.Student, len(rows))
		for i := range rows {
			if uid := rows[i].UserID; uid != nil {
				if _, dup := out[*uid]; !dup {
					out[*uid] = &rows[i]
				}
			}
		}
		return out, nil
	}
}

// ForgetStudent drops every cached entry a write to st can have changed.
func (s *Scope) ForgetStudent(st models.Student) {
	s.StudentByID.Clear(st.ID)
	s.StudentsBySchool.Clear(st.SchoolID)
	s.SchoolByID.Clear(st.SchoolID)
	if st.UserID != nil {
		s.StudentByUser.Clear(*st.UserID)
	}
}

// ForgetSchool drops the cached school and its student list.
func (s *Scope) ForgetSchool(id ID) {
	s.SchoolByID.Clear(id)
	s.StudentsBySchool.Clear(id)
}

// ForgetUser drops the cached user and its linked student.
func (s *Scope) ForgetUser(id ID) {
	s.UserByID.Clear(id)
	s.StudentByUser.Clear(id)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Request scoping                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey string

const scopeKey ctxKey = "loaders"

// WithScope returns ctx carrying s.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey, s)
}

// FromContext returns the request's scope and whether one was installed.
func FromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey).(*Scope)
	return s, ok && s != nil
}

// Middleware installs a new Scope for every request. Nothing cached in one
// request is visible to another.
func Middleware(src Source, set Settings, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := NewScope(r.Context(), src, set, log)
			next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), scope)))
		})
	}
}
