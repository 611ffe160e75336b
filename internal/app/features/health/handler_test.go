package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/dalemusser/schoolhub/internal/app/features/health"
	"github.com/dalemusser/schoolhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context, *readpref.ReadPref) error { return f.err }

type healthBody struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Message  string `json:"message"`
}

func serve(t *testing.T, h *health.Handler) (*testutil.ResponseRecorder, healthBody) {
	t.Helper()
	rec := testutil.NewRecorder()
	health.Routes(h).ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/", ""))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	var body healthBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec, body
}

func TestServe(t *testing.T) {
	tests := []struct {
		name       string
		db         health.Pinger
		wantCode   int
		wantStatus string
		wantDB     string
	}{
		{"memory backend", nil, http.StatusOK, "ok", "memory"},
		{"ping ok", fakePinger{}, http.StatusOK, "ok", "connected"},
		{"ping fails", fakePinger{err: errors.New("no route")}, http.StatusServiceUnavailable, "error", "disconnected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := serve(t, health.NewHandler(tt.db, nil))
			rec.AssertStatus(t, tt.wantCode)
			rec.AssertContains(t, `"database":"`+tt.wantDB+`"`)
			if body.Status != tt.wantStatus || body.Database != tt.wantDB {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	rec, body := serve(t, health.NewHandler(db.Client(), nil))
	if rec.Code != http.StatusOK || body.Database != "connected" {
		t.Errorf("got %d %+v", rec.Code, body)
	}
}
