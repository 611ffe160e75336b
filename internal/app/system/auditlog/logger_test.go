package auditlog_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dalemusser/schoolhub/internal/app/store/audit"
	"github.com/dalemusser/schoolhub/internal/app/system/auditlog"
	"github.com/dalemusser/schoolhub/internal/app/system/logctx"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recorder struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (r *recorder) Log(_ context.Context, e audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func newLogger(cfg auditlog.Config) (*auditlog.Logger, *recorder, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	rec := &recorder{}
	return auditlog.New(rec, zap.New(core), cfg), rec, logs
}

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx := context.Background()

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, primitive.NewObjectID(), "a@example.com")
	logger.Entity(ctx, audit.EventSchoolCreated, models.KindSchool, primitive.NewObjectID(), nil, nil)
}

func TestLogger_Destinations(t *testing.T) {
	tests := []struct {
		setting string
		wantDB  int
		wantZap int
	}{
		{"all", 1, 1},
		{"db", 1, 0},
		{"log", 0, 1},
		{"off", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.setting, func(t *testing.T) {
			logger, rec, logs := newLogger(auditlog.Config{Auth: tt.setting, Admin: tt.setting})
			logger.LoginSuccess(context.Background(), primitive.NewObjectID(), "a@example.com")

			if len(rec.events) != tt.wantDB {
				t.Errorf("db events = %d, want %d", len(rec.events), tt.wantDB)
			}
			if logs.Len() != tt.wantZap {
				t.Errorf("zap entries = %d, want %d", logs.Len(), tt.wantZap)
			}
		})
	}
}

func TestLogger_CategoriesConfiguredSeparately(t *testing.T) {
	logger, rec, _ := newLogger(auditlog.Config{Auth: "off", Admin: "db"})
	ctx := context.Background()

	logger.LoginFailedUserNotFound(ctx, "ghost@example.com")
	logger.Entity(ctx, audit.EventStudentDeleted, models.KindStudent, primitive.NewObjectID(), nil, nil)

	if len(rec.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rec.events))
	}
	if rec.events[0].Category != audit.CategoryAdmin {
		t.Errorf("category = %q, want admin", rec.events[0].Category)
	}
}

func TestLogger_FillsRequestMeta(t *testing.T) {
	logger, rec, _ := newLogger(auditlog.Config{Auth: "db", Admin: "db"})
	ctx := logctx.With(context.Background(), logctx.Meta{
		RequestID: "req-1",
		IP:        "10.0.0.7",
		UserAgent: "tests",
	})

	userID := primitive.NewObjectID()
	actor := primitive.NewObjectID()
	logger.RoleAdded(ctx, userID, &actor, "staff")

	if len(rec.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rec.events))
	}
	e := rec.events[0]
	if e.RequestID != "req-1" || e.IP != "10.0.0.7" || e.UserAgent != "tests" {
		t.Errorf("request meta not copied: %+v", e)
	}
	if e.UserID == nil || *e.UserID != userID {
		t.Error("user events should carry UserID")
	}
	if e.ActorID == nil || *e.ActorID != actor {
		t.Error("expected ActorID")
	}
	if e.Details["role"] != "staff" {
		t.Errorf("details = %v", e.Details)
	}
}

func TestLogger_FailuresLogAtWarn(t *testing.T) {
	logger, _, logs := newLogger(auditlog.Config{Auth: "log"})
	logger.LoginFailedWrongPassword(context.Background(), primitive.NewObjectID(), "a@example.com")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("level = %v, want warn", entries[0].Level)
	}
}

func TestLogger_StoreErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	rec := &recorder{err: errors.New("write failed")}
	logger := auditlog.New(rec, zap.New(core), auditlog.Config{Admin: "db"})

	logger.StudentMoved(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), nil)

	if logs.FilterMessage("failed to store audit event").Len() != 1 {
		t.Error("expected store failure to be logged")
	}
}

func TestLogger_NilStoreSkipsDB(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := auditlog.New(nil, zap.New(core), auditlog.Config{Admin: "all"})

	logger.Entity(context.Background(), audit.EventUserDeleted, models.KindUser, primitive.NewObjectID(), nil, nil)

	if logs.FilterMessage("audit event").Len() != 1 {
		t.Error("expected zap entry")
	}
}
