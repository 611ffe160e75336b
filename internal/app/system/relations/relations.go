// Package relations keeps each school's denormalized students array in
// step with the students' school_id.
//
// student.school_id is authoritative. The school array is written eagerly
// on every student create, move and delete, and Reconcile rebuilds it from
// the students collection when the two have drifted (for example after a
// failure between the two writes of a move).
package relations

import (
	"context"

	"github.com/dalemusser/schoolhub/internal/app/system/apperr"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Store is the slice of the entity gateway the maintainer needs.
type Store interface {
	ExistsActive(ctx context.Context, kind models.Kind, id primitive.ObjectID) (bool, error)
	AddStudentToSchool(ctx context.Context, schoolID, studentID primitive.ObjectID) error
	PullStudentFromSchool(ctx context.Context, schoolID, studentID primitive.ObjectID) error
	MoveStudent(ctx context.Context, studentID, from, to primitive.ObjectID) error
	FindSchoolsListingStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.School, error)
	FindSchoolsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.School, error)
	ActiveStudentIDsBySchool(ctx context.Context, schoolID primitive.ObjectID) ([]primitive.ObjectID, error)
	SetSchoolStudents(ctx context.Context, schoolID primitive.ObjectID, ids []primitive.ObjectID) error
	ListActiveSchoolIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

// DefaultReconcileLimit bounds concurrent school repairs in ReconcileAll.
const DefaultReconcileLimit = 4

type Maintainer struct {
	store Store
	log   *zap.Logger
	limit int
}

func New(store Store, log *zap.Logger) *Maintainer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Maintainer{store: store, log: log, limit: DefaultReconcileLimit}
}

// requireSchool fails with ReferenceNotFound unless schoolID is an active school.
func (m *Maintainer) requireSchool(ctx context.Context, schoolID primitive.ObjectID) error {
	ok, err := m.store.ExistsActive(ctx, models.KindSchool, schoolID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.ReferenceNotFound, "school %s does not exist", schoolID.Hex())
	}
	return nil
}

// OnStudentCreated lists a newly persisted student on its school.
func (m *Maintainer) OnStudentCreated(ctx context.Context, st models.Student) error {
	if err := m.requireSchool(ctx, st.SchoolID); err != nil {
		return err
	}
	return m.store.AddStudentToSchool(ctx, st.SchoolID, st.ID)
}

// OnStudentSchoolChanged moves studentID from one school's array to
// another's. Both writes go out in one batch but are not atomic; a
// failure between them is repaired by Reconcile.
func (m *Maintainer) OnStudentSchoolChanged(ctx context.Context, studentID, from, to primitive.ObjectID) error {
	if from == to {
		return nil
	}
	if err := m.requireSchool(ctx, to); err != nil {
		return err
	}
	return m.store.MoveStudent(ctx, studentID, from, to)
}

// OnStudentDeleted removes studentID from every school that lists it.
// The schools are found by scanning the arrays, not by trusting the
// student's school_id, so earlier drift is cleaned up too.
//
// It returns the schools it pulled the student from, including on
// error, so a caller can undo exactly those writes.
func (m *Maintainer) OnStudentDeleted(ctx context.Context, studentID primitive.ObjectID) ([]primitive.ObjectID, error) {
	schools, err := m.store.FindSchoolsListingStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	pulled := make([]primitive.ObjectID, 0, len(schools))
	for _, sc := range schools {
		if err := m.store.PullStudentFromSchool(ctx, sc.ID, studentID); err != nil {
			return pulled, err
		}
		pulled = append(pulled, sc.ID)
	}
	return pulled, nil
}

// Reconcile rewrites schoolID's students array from the active students
// that reference it. It reports whether a rewrite was needed.
func (m *Maintainer) Reconcile(ctx context.Context, schoolID primitive.ObjectID) (bool, error) {
	schools, err := m.store.FindSchoolsByIDs(ctx, []primitive.ObjectID{schoolID})
	if err != nil {
		return false, err
	}
	if len(schools) == 0 {
		return false, nil
	}
	want, err := m.store.ActiveStudentIDsBySchool(ctx, schoolID)
	if err != nil {
		return false, err
	}
	if sameSet(schools[0].Students, want) {
		return false, nil
	}
	if err := m.store.SetSchoolStudents(ctx, schoolID, want); err != nil {
		return false, err
	}
	m.log.Info("repaired school student index",
		zap.String("school_id", schoolID.Hex()),
		zap.Int("listed", len(schools[0].Students)),
		zap.Int("actual", len(want)))
	return true, nil
}

// ReconcileAll reconciles every active school and returns how many were
// repaired. It stops at the first error.
func (m *Maintainer) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := m.store.ListActiveSchoolIDs(ctx)
	if err != nil {
		return 0, err
	}

	repaired := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.limit)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			changed, err := m.Reconcile(gctx, id)
			repaired[i] = changed
			return err
		})
	}
	err = g.Wait()

	n := 0
	for _, r := range repaired {
		if r {
			n++
		}
	}
	return n, err
}

func sameSet(a, b []primitive.ObjectID) bool {
	as := make(map[primitive.ObjectID]struct{}, len(a))
	for _, id := range a {
		as[id] = struct{}{}
	}
	bs := make(map[primitive.ObjectID]struct{}, len(b))
	for _, id := range b {
		bs[id] = struct{}{}
	}
	if len(as) != len(bs) || len(a) != len(as) {
		return false
	}
	for id := range bs {
		if _, ok := as[id]; !ok {
			return false
		}
	}
	return true
}
