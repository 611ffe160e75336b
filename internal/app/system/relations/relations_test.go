package relations_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/schoolhub/internal/app/store/memstore"
	"github.com/dalemusser/schoolhub/internal/app/system/apperr"
	"github.com/dalemusser/schoolhub/internal/app/system/relations"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type env struct {
	ctx   context.Context
	store *memstore.Store
	m     *relations.Maintainer
}

func newEnv() env {
	s := memstore.New()
	return env{ctx: context.Background(), store: s, m: relations.New(s, nil)}
}

func (e env) school(t *testing.T, name string) models.School {
	t.Helper()
	sc, err := e.store.CreateSchool(e.ctx, models.School{LongName: name, BrandName: name})
	require.NoError(t, err)
	return sc
}

func (e env) student(t *testing.T, email string, schoolID primitive.ObjectID) models.Student {
	t.Helper()
	st, err := e.store.CreateStudent(e.ctx, models.Student{Email: email, SchoolID: schoolID})
	require.NoError(t, err)
	require.NoError(t, e.m.OnStudentCreated(e.ctx, st))
	return st
}

func (e env) listed(t *testing.T, schoolID primitive.ObjectID) []primitive.ObjectID {
	t.Helper()
	sc, err := e.store.GetSchool(e.ctx, schoolID)
	require.NoError(t, err)
	return sc.Students
}

func TestCreateThenMoveKeepsBothSidesConsistent(t *testing.T) {
	e := newEnv()
	s1 := e.school(t, "North")
	s2 := e.school(t, "South")
	st := e.student(t, "pat@example.com", s1.ID)

	require.Equal(t, []primitive.ObjectID{st.ID}, e.listed(t, s1.ID))

	_, err := e.store.UpdateStudent(e.ctx, st.ID, models.Student{SchoolID: s2.ID})
	require.NoError(t, err)
	require.NoError(t, e.m.OnStudentSchoolChanged(e.ctx, st.ID, s1.ID, s2.ID))

	require.NotContains(t, e.listed(t, s1.ID), st.ID)
	require.Contains(t, e.listed(t, s2.ID), st.ID)
}

func TestCreateIntoMissingSchoolFails(t *testing.T) {
	e := newEnv()
	st := models.Student{ID: primitive.NewObjectID(), SchoolID: primitive.NewObjectID()}

	err := e.m.OnStudentCreated(e.ctx, st)
	require.True(t, apperr.Is(err, apperr.ReferenceNotFound), "got %v", err)
}

func TestMoveToDeletedSchoolFailsWithoutWriting(t *testing.T) {
	e := newEnv()
	s1 := e.school(t, "Old")
	gone := e.school(t, "Gone")
	st := e.student(t, "lee@example.com", s1.ID)
	_, err := e.store.SoftDeleteSchool(e.ctx, gone.ID, primitive.NewObjectID())
	require.NoError(t, err)

	err = e.m.OnStudentSchoolChanged(e.ctx, st.ID, s1.ID, gone.ID)
	require.True(t, apperr.Is(err, apperr.ReferenceNotFound), "got %v", err)
	require.Contains(t, e.listed(t, s1.ID), st.ID)
}

func TestMoveToSameSchoolIsNoop(t *testing.T) {
	e := newEnv()
	s1 := e.school(t, "Same")
	st := e.student(t, "sam@example.com", s1.ID)

	require.NoError(t, e.m.OnStudentSchoolChanged(e.ctx, st.ID, s1.ID, s1.ID))
	require.Equal(t, []primitive.ObjectID{st.ID}, e.listed(t, s1.ID))
}

func TestDeleteUsesReverseScan(t *testing.T) {
	e := newEnv()
	s1 := e.school(t, "Home")
	stray := e.school(t, "Stray")
	st := e.student(t, "jo@example.com", s1.ID)
	// Drift: a second school also lists the student.
	require.NoError(t, e.store.AddStudentToSchool(e.ctx, stray.ID, st.ID))

	pulled, err := e.m.OnStudentDeleted(e.ctx, st.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []primitive.ObjectID{s1.ID, stray.ID}, pulled)

	require.NotContains(t, e.listed(t, s1.ID), st.ID)
	require.NotContains(t, e.listed(t, stray.ID), st.ID)
}

func TestReconcileRepairsDrift(t *testing.T) {
	e := newEnv()
	s1 := e.school(t, "Drifted")
	s2 := e.school(t, "Fine")
	a := e.student(t, "a@example.com", s1.ID)
	e.student(t, "b@example.com", s2.ID)

	// Half-finished move: school_id changed but arrays untouched.
	b, err := e.store.CreateStudent(e.ctx, models.Student{Email: "c@example.com", SchoolID: s1.ID})
	require.NoError(t, err)
	ghost := primitive.NewObjectID()
	require.NoError(t, e.store.AddStudentToSchool(e.ctx, s1.ID, ghost))

	n, err := e.m.ReconcileAll(e.ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.ElementsMatch(t, []primitive.ObjectID{a.ID, b.ID}, e.listed(t, s1.ID))

	changed, err := e.m.Reconcile(e.ctx, s1.ID)
	require.NoError(t, err)
	require.False(t, changed)
}

type failingMove struct {
	*memstore.Store
}

func (failingMove) MoveStudent(context.Context, primitive.ObjectID, primitive.ObjectID, primitive.ObjectID) error {
	return apperr.Unavailable(errors.New("socket closed"))
}

func TestMoveFailurePropagates(t *testing.T) {
	e := newEnv()
	s1 := e.school(t, "From")
	s2 := e.school(t, "To")
	st := e.student(t, "x@example.com", s1.ID)

	m := relations.New(failingMove{e.store}, nil)
	err := m.OnStudentSchoolChanged(e.ctx, st.ID, s1.ID, s2.ID)
	require.True(t, apperr.Is(err, apperr.BackendUnavailable), "got %v", err)
}
