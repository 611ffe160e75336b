package memstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/schoolhub/internal/app/store/memstore"
	"github.com/dalemusser/schoolhub/internal/app/store/storeerr"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newSchool(t *testing.T, s *memstore.Store, name string) models.School {
	t.Helper()
	sc, err := s.CreateSchool(context.Background(), models.School{LongName: name, BrandName: name + " Brand"})
	if err != nil {
		t.Fatalf("CreateSchool(%q) failed: %v", name, err)
	}
	return sc
}

func TestCreateUser_AddsBaseRole(t *testing.T) {
	s := memstore.New()
	u, err := s.CreateUser(context.Background(), models.User{Email: "a@example.com", Roles: []string{models.RoleAdmin}})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if !u.HasRole(models.RoleUser) || !u.HasRole(models.RoleAdmin) {
		t.Errorf("roles = %v, want user and admin", u.Roles)
	}
	if u.Status != "active" {
		t.Errorf("status = %q, want active", u.Status)
	}
}

func TestEmailUniqueAmongActiveOnly(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	actor := primitive.NewObjectID()

	first, err := s.CreateUser(ctx, models.User{Email: "dup@example.com"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if _, err := s.CreateUser(ctx, models.User{Email: "dup@example.com"}); !errors.Is(err, storeerr.ErrDuplicateEmail) {
		t.Fatalf("second CreateUser error = %v, want ErrDuplicateEmail", err)
	}
	if _, err := s.SoftDeleteUser(ctx, first.ID, actor); err != nil {
		t.Fatalf("SoftDeleteUser failed: %v", err)
	}
	if _, err := s.CreateUser(ctx, models.User{Email: "dup@example.com"}); err != nil {
		t.Errorf("CreateUser after soft delete failed: %v", err)
	}
}

func TestSoftDeletedRecordsAreInvisible(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	sc := newSchool(t, s, "Hidden High")

	if _, err := s.SoftDeleteSchool(ctx, sc.ID, primitive.NewObjectID()); err != nil {
		t.Fatalf("SoftDeleteSchool failed: %v", err)
	}
	if _, err := s.GetSchool(ctx, sc.ID); !errors.Is(err, storeerr.ErrNotFound) {
		t.Errorf("GetSchool error = %v, want ErrNotFound", err)
	}
	got, _ := s.FindSchoolsByIDs(ctx, []primitive.ObjectID{sc.ID})
	if len(got) != 0 {
		t.Errorf("FindSchoolsByIDs returned %d schools, want 0", len(got))
	}
	ok, _ := s.ExistsActive(ctx, models.KindSchool, sc.ID)
	if ok {
		t.Error("ExistsActive = true for a deleted school")
	}
	if _, err := s.SoftDeleteSchool(ctx, sc.ID, primitive.NewObjectID()); !errors.Is(err, storeerr.ErrNotFound) {
		t.Errorf("second SoftDeleteSchool error = %v, want ErrNotFound", err)
	}
}

func TestSchoolNamesFoldedForUniqueness(t *testing.T) {
	s := memstore.New()
	newSchool(t, s, "Lincoln High")
	_, err := s.CreateSchool(context.Background(), models.School{LongName: "LINCOLN HIGH", BrandName: "Other"})
	if !errors.Is(err, storeerr.ErrDuplicateLongName) {
		t.Errorf("error = %v, want ErrDuplicateLongName", err)
	}
}

func TestStudentIndexSetSemantics(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	a := newSchool(t, s, "A School")
	b := newSchool(t, s, "B School")
	id := primitive.NewObjectID()

	for i := 0; i < 2; i++ {
		if err := s.AddStudentToSchool(ctx, a.ID, id); err != nil {
			t.Fatalf("AddStudentToSchool failed: %v", err)
		}
	}
	got, _ := s.GetSchool(ctx, a.ID)
	if len(got.Students) != 1 {
		t.Fatalf("students = %v, want exactly one entry", got.Students)
	}

	if err := s.MoveStudent(ctx, id, a.ID, b.ID); err != nil {
		t.Fatalf("MoveStudent failed: %v", err)
	}
	gotA, _ := s.GetSchool(ctx, a.ID)
	gotB, _ := s.GetSchool(ctx, b.ID)
	if gotA.ListsStudent(id) || !gotB.ListsStudent(id) {
		t.Errorf("after move A=%v B=%v", gotA.Students, gotB.Students)
	}

	if err := s.AddStudentToSchool(ctx, primitive.NewObjectID(), id); !errors.Is(err, storeerr.ErrNotFound) {
		t.Errorf("AddStudentToSchool(missing) error = %v, want ErrNotFound", err)
	}
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	sc := newSchool(t, s, "Copy Academy")
	if err := s.AddStudentToSchool(ctx, sc.ID, primitive.NewObjectID()); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetSchool(ctx, sc.ID)
	got.Students[0] = primitive.NilObjectID

	again, _ := s.GetSchool(ctx, sc.ID)
	if again.Students[0].IsZero() {
		t.Error("mutating a returned school changed the stored one")
	}
}

func TestListStudentsPaging(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	sc := newSchool(t, s, "Paging Prep")
	for _, e := range []string{"a@x.io", "b@x.io", "c@x.io"} {
		if _, err := s.CreateStudent(ctx, models.Student{Email: e, SchoolID: sc.ID}); err != nil {
			t.Fatal(err)
		}
	}
	page, _ := s.ListStudents(ctx, &sc.ID, 2, 1)
	if len(page) != 2 || page[0].Email != "b@x.io" {
		t.Errorf("page = %+v, want b and c", page)
	}
	n, _ := s.CountActiveStudentsBySchool(ctx, sc.ID)
	if n != 3 {
		t.Errorf("CountActiveStudentsBySchool = %d, want 3", n)
	}
}
