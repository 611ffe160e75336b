package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/store/audit"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/schoolhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	err := store.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        "192.168.1.1",
		Success:   true,
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID.IsZero() {
		t.Error("expected ID to be generated")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestStore_QueryByEntityAndType(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	schoolID := primitive.NewObjectID()
	for _, et := range []string{audit.EventSchoolCreated, audit.EventSchoolUpdated, audit.EventSchoolDeleted} {
		if err := store.Log(ctx, audit.Event{
			Category:   audit.CategoryAdmin,
			EventType:  et,
			EntityKind: models.KindSchool,
			EntityID:   &schoolID,
			Success:    true,
		}); err != nil {
			t.Fatalf("Log(%s) failed: %v", et, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	all, err := store.GetByEntity(ctx, schoolID, 10)
	if err != nil {
		t.Fatalf("GetByEntity failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
	if all[0].EventType != audit.EventSchoolDeleted {
		t.Errorf("newest event = %q, want %q", all[0].EventType, audit.EventSchoolDeleted)
	}

	n, err := store.Count(ctx, audit.QueryFilter{EntityID: &schoolID, EventType: audit.EventSchoolUpdated})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}
