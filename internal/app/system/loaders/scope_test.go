package loaders_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/store/memstore"
	"github.com/dalemusser/schoolhub/internal/app/system/loaders"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var settings = loaders.Settings{Wait: 5 * time.Millisecond, MaxBatch: 50, Timeout: time.Second}

type fixture struct {
	store   *memstore.Store
	school  models.School
	student models.Student
	user    models.User
}

func seed(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()

	sc, err := s.CreateSchool(ctx, models.School{LongName: "Riverside Academy", BrandName: "Riverside"})
	require.NoError(t, err)
	u, err := s.CreateUser(ctx, models.User{Email: "kim@example.com", FirstName: "Kim"})
	require.NoError(t, err)
	st, err := s.CreateStudent(ctx, models.Student{Email: "kim@example.com", SchoolID: sc.ID, UserID: &u.ID})
	require.NoError(t, err)
	require.NoError(t, s.AddStudentToSchool(ctx, sc.ID, st.ID))

	return fixture{store: s, school: sc, student: st, user: u}
}

func TestScopeRelations(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	scope := loaders.NewScope(ctx, f.store, settings, zap.NewNop())

	school, err := scope.SchoolByID.Load(ctx, f.student.SchoolID)
	require.NoError(t, err)
	require.NotNil(t, school)
	require.Equal(t, "Riverside Academy", school.LongName)

	students, err := scope.StudentsBySchool.Load(ctx, f.school.ID)
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.Equal(t, f.student.ID, students[0].ID)

	linked, err := scope.StudentByUser.Load(ctx, f.user.ID)
	require.NoError(t, err)
	require.NotNil(t, linked)
	require.Equal(t, f.student.ID, linked.ID)

	user, err := scope.UserByID.Load(ctx, *f.student.UserID)
	require.NoError(t, err)
	require.Equal(t, "Kim", user.FirstName)

	none, err := scope.StudentsBySchool.Load(ctx, primitive.NewObjectID())
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestSoftDeletedEntitiesLoadAsNil(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	_, err := f.store.SoftDeleteStudent(ctx, f.student.ID, f.user.ID)
	require.NoError(t, err)

	scope := loaders.NewScope(ctx, f.store, settings, zap.NewNop())
	st, err := scope.StudentByID.Load(ctx, f.student.ID)
	require.NoError(t, err)
	require.Nil(t, st)

	students, err := scope.StudentsBySchool.Load(ctx, f.school.ID)
	require.NoError(t, err)
	require.Empty(t, students)
}

func TestForgetStudentDropsStaleEntries(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	scope := loaders.NewScope(ctx, f.store, settings, zap.NewNop())

	st, err := scope.StudentByID.Load(ctx, f.student.ID)
	require.NoError(t, err)
	require.NotNil(t, st)

	_, err = f.store.SoftDeleteStudent(ctx, f.student.ID, f.user.ID)
	require.NoError(t, err)

	// Still cached until told otherwise.
	st, _ = scope.StudentByID.Load(ctx, f.student.ID)
	require.NotNil(t, st)

	scope.ForgetStudent(f.student)
	st, err = scope.StudentByID.Load(ctx, f.student.ID)
	require.NoError(t, err)
	require.Nil(t, st)
}

func TestMiddlewareScopesPerRequest(t *testing.T) {
	f := seed(t)
	var seen []*loaders.Scope

	h := loaders.Middleware(f.store, settings, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, ok := loaders.FromContext(r.Context())
		require.True(t, ok)
		seen = append(seen, scope)
	}))

	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/graphql", nil))
	}
	require.Len(t, seen, 2)
	require.NotSame(t, seen[0], seen[1])
}

func TestFromContextMissing(t *testing.T) {
	_, ok := loaders.FromContext(context.Background())
	require.False(t, ok)
}
