package invariants_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/schoolhub/internal/app/policy/invariants"
	"github.com/dalemusser/schoolhub/internal/app/store/memstore"
	"github.com/dalemusser/schoolhub/internal/app/system/apperr"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNameIsExist(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	c := invariants.New(s)

	u, err := s.CreateUser(ctx, models.User{Email: "taken@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	sc, err := s.CreateSchool(ctx, models.School{LongName: "Saint-Jean Academy", BrandName: "ESJ"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		kind    models.Kind
		field   string
		value   string
		exclude *primitive.ObjectID
		want    bool
	}{
		{"same email", models.KindUser, "email", "taken@example.com", nil, true},
		{"email differs by case", models.KindUser, "email", "  TAKEN@example.com ", nil, true},
		{"free email", models.KindUser, "email", "free@example.com", nil, false},
		{"excluding the owner", models.KindUser, "email", "taken@example.com", &u.ID, false},
		{"email unique per kind", models.KindStudent, "email", "taken@example.com", nil, false},
		{"folded long name", models.KindSchool, "long_name", "SAINT-JEAN academy", nil, true},
		{"brand name", models.KindSchool, "brand_name", "esj", nil, true},
		{"brand name excluded", models.KindSchool, "brand_name", "ESJ", &sc.ID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.NameIsExist(ctx, tt.kind, tt.field, tt.value, tt.exclude)
			if err != nil {
				t.Fatalf("NameIsExist error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NameIsExist(%s, %s, %q) = %v, want %v", tt.kind, tt.field, tt.value, got, tt.want)
			}
		})
	}
}

func TestNameIsExist_UnknownField(t *testing.T) {
	c := invariants.New(memstore.New())
	_, err := c.NameIsExist(context.Background(), models.KindUser, "password_hash", "x", nil)
	if !apperr.Is(err, apperr.InvalidArgument) {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestSoftDeletedRecordsFreeTheirEmail(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	c := invariants.New(s)

	u, _ := s.CreateUser(ctx, models.User{Email: "gone@example.com"})
	if _, err := s.SoftDeleteUser(ctx, u.ID, primitive.NewObjectID()); err != nil {
		t.Fatal(err)
	}
	if err := c.RequireUnique(ctx, models.KindUser, "email", "gone@example.com", nil); err != nil {
		t.Errorf("RequireUnique after soft delete: %v", err)
	}
}

func TestRequireUnique_Conflict(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	c := invariants.New(s)
	if _, err := s.CreateSchool(ctx, models.School{LongName: "Hill", BrandName: "Hill"}); err != nil {
		t.Fatal(err)
	}

	err := c.RequireUnique(ctx, models.KindSchool, "long_name", "HILL", nil)
	if !apperr.Is(err, apperr.ConflictAlreadyExists) {
		t.Errorf("expected ConflictAlreadyExists, got %v", err)
	}
}

func TestReferentialBlock_ActiveStudentsOnly(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	c := invariants.New(s)

	sc, _ := s.CreateSchool(ctx, models.School{LongName: "Blocked", BrandName: "Blocked"})
	st, _ := s.CreateStudent(ctx, models.Student{Email: "kid@example.com", SchoolID: sc.ID})

	if err := c.RequireNoActiveStudents(ctx, sc.ID); !apperr.Is(err, apperr.ReferentialBlock) {
		t.Fatalf("expected ReferentialBlock, got %v", err)
	}

	if _, err := s.SoftDeleteStudent(ctx, st.ID, primitive.NewObjectID()); err != nil {
		t.Fatal(err)
	}
	if err := c.RequireNoActiveStudents(ctx, sc.ID); err != nil {
		t.Errorf("expected no block after student deleted, got %v", err)
	}
}

func TestRequireActive(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	c := invariants.New(s)
	sc, _ := s.CreateSchool(ctx, models.School{LongName: "Here", BrandName: "Here"})

	if err := c.RequireActive(ctx, models.KindSchool, sc.ID); err != nil {
		t.Errorf("RequireActive(existing) = %v", err)
	}
	if err := c.RequireActive(ctx, models.KindSchool, primitive.NewObjectID()); !apperr.Is(err, apperr.ReferenceNotFound) {
		t.Errorf("RequireActive(missing) = %v, want ReferenceNotFound", err)
	}
}

func TestRoleIsProtected(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{models.RoleUser, true},
		{models.RoleAdmin, false},
		{models.RoleStaff, false},
		{"", false},
	}
	for _, tt := range tests {
		if got := invariants.RoleIsProtected(tt.role); got != tt.want {
			t.Errorf("RoleIsProtected(%q) = %v, want %v", tt.role, got, tt.want)
		}
	}
	if err := invariants.RequireRemovableRole(models.RoleUser); !apperr.Is(err, apperr.Unauthorized) {
		t.Errorf("RequireRemovableRole(user) = %v, want Unauthorized", err)
	}
}

func TestSelfActionGuard(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	if !invariants.SelfActionGuard(a, a) {
		t.Error("same id should be guarded")
	}
	if invariants.SelfActionGuard(a, b) {
		t.Error("different ids should not be guarded")
	}
	if err := invariants.RequireNotSelf(a, a); !apperr.Is(err, apperr.Unauthorized) {
		t.Errorf("RequireNotSelf(a, a) = %v, want Unauthorized", err)
	}
}

type brokenStore struct{ memstore.Store }

func (*brokenStore) CountActiveStudentsBySchool(context.Context, primitive.ObjectID) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestReadFailuresAreBackendUnavailable(t *testing.T) {
	c := invariants.New(&brokenStore{})
	_, err := c.ReferentialBlock(context.Background(), primitive.NewObjectID())
	if !apperr.Is(err, apperr.BackendUnavailable) {
		t.Errorf("expected BackendUnavailable, got %v", err)
	}
}
