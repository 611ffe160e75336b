package validators_test

import (
	"testing"

	"github.com/dalemusser/schoolhub/internal/app/system/validators"
	"github.com/dalemusser/schoolhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := map[string]bool{}
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"users", "schools", "students", "error_logs", "audit_events"} {
		if !have[want] {
			t.Errorf("collection %q not created", want)
		}
	}
}

func TestEnsureAll_RejectsInvalidDocuments(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	tests := []struct {
		name string
		coll string
		doc  bson.M
	}{
		{"user unknown role", "users", bson.M{
			"first_name": "A", "last_name": "B", "email": "a@b.co",
			"roles": bson.A{"user", "wizard"}, "status": "active",
		}},
		{"user empty roles", "users", bson.M{
			"first_name": "A", "last_name": "B", "email": "a@b.co",
			"roles": bson.A{}, "status": "active",
		}},
		{"school bad status", "schools", bson.M{
			"brand_name": "N", "brand_name_ci": "n", "long_name": "North", "long_name_ci": "north",
			"students": bson.A{}, "status": "archived",
		}},
		{"student missing school", "students", bson.M{
			"first_name": "A", "last_name": "B", "email": "a@b.co", "status": "active",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	valid := bson.M{
		"first_name": "A", "last_name": "B", "email": "a@b.co",
		"school_id": primitive.NewObjectID(), "status": "active",
	}
	if _, err := db.Collection("students").InsertOne(ctx, valid); err != nil {
		t.Errorf("valid student rejected: %v", err)
	}
}
