package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/system/status"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for inserting test data directly,
// bypassing the stores under test.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, kind models.Kind, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(kind.Collection()).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to create test %s: %v", kind, err)
	}
}

// CreateUser inserts an active user holding the base role plus roles.
func (f *Fixtures) CreateUser(ctx context.Context, first, email string, roles ...string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:        primitive.NewObjectID(),
		FirstName: first,
		LastName:  "Test",
		Email:     email,
		Roles:     models.WithBaseRole(roles),
		Status:    status.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, models.KindUser, u)
	return u
}

// CreateAdmin inserts an active admin.
func (f *Fixtures) CreateAdmin(ctx context.Context, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, "Admin", email, models.RoleAdmin)
}

// CreateSchool inserts an active school with an empty students array.
func (f *Fixtures) CreateSchool(ctx context.Context, brand, long string) models.School {
	f.t.Helper()

	now := time.Now().UTC()
	s := models.School{
		ID:          primitive.NewObjectID(),
		BrandName:   brand,
		BrandNameCI: text.Fold(brand),
		LongName:    long,
		LongNameCI:  text.Fold(long),
		City:        "Test City",
		Students:    []primitive.ObjectID{},
		Status:      status.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(ctx, models.KindSchool, s)
	return s
}

// CreateStudent inserts an active student. The school's students array is
// not touched; use LinkStudent for that.
func (f *Fixtures) CreateStudent(ctx context.Context, first, email string, schoolID primitive.ObjectID) models.Student {
	f.t.Helper()

	now := time.Now().UTC()
	s := models.Student{
		ID:        primitive.NewObjectID(),
		FirstName: first,
		LastName:  "Test",
		Email:     email,
		SchoolID:  schoolID,
		Status:    status.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, models.KindStudent, s)
	return s
}

// LinkStudent adds studentID to the school's students array.
func (f *Fixtures) LinkStudent(ctx context.Context, schoolID, studentID primitive.ObjectID) {
	f.t.Helper()
	_, err := f.db.Collection(models.KindSchool.Collection()).UpdateByID(ctx, schoolID,
		map[string]any{"$addToSet": map[string]any{"students": studentID}})
	if err != nil {
		f.t.Fatalf("failed to link student: %v", err)
	}
}
