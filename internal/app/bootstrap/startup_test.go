package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/store/entitystore"
	"github.com/dalemusser/schoolhub/internal/app/store/memstore"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/schoolhub/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func testAppConfig() AppConfig {
	return AppConfig{
		StoreBackend:   BackendMemory,
		JWTSecret:      "test-secret-test-secret-test-secret!",
		JWTIssuer:      "schoolhub-test",
		JWTTTL:         time.Hour,
		LoaderWait:     time.Millisecond,
		LoaderMaxBatch: 100,
		LoaderTimeout:  time.Second,
		ErrorLog:       "log",
		AuditAuth:      "log",
		AuditAdmin:     "log",
	}
}

func TestEnsureAdmin_CreatesNew(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	if err := ensureAdmin(ctx, store, " Admin@Test.com ", "correct horse", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	user, err := store.FindUserByEmail(ctx, "admin@test.com")
	if err != nil {
		t.Fatalf("failed to find created user: %v", err)
	}
	if !user.HasRole(models.RoleAdmin) || !user.HasRole(models.RoleUser) {
		t.Errorf("expected roles user and admin, got %v", user.Roles)
	}
	if user.Status != "active" {
		t.Errorf("expected status 'active', got %q", user.Status)
	}
	if !auth.CheckPassword(user.PasswordHash, "correct horse") {
		t.Error("expected password hash to match admin_password")
	}
}

func TestEnsureAdmin_PromotesExisting(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	existing, err := store.CreateUser(ctx, models.User{FirstName: "Existing", LastName: "User", Email: "existing@test.com"})
	if err != nil {
		t.Fatalf("failed to create existing user: %v", err)
	}

	// No password needed when the account already exists.
	if err := ensureAdmin(ctx, store, "existing@test.com", "", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	user, err := store.GetUser(ctx, existing.ID)
	if err != nil {
		t.Fatalf("failed to find user: %v", err)
	}
	if !user.HasRole(models.RoleAdmin) {
		t.Errorf("expected admin role after promotion, got %v", user.Roles)
	}
	if store.CountUsers() != 1 {
		t.Errorf("expected 1 user, got %d", store.CountUsers())
	}
}

func TestEnsureAdmin_AlreadyAdmin(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	existing, err := store.CreateUser(ctx, models.User{
		FirstName: "Admin", LastName: "User", Email: "admin@test.com", Roles: []string{models.RoleAdmin},
	})
	if err != nil {
		t.Fatalf("failed to create existing admin: %v", err)
	}

	if err := ensureAdmin(ctx, store, "admin@test.com", "", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	user, err := store.GetUser(ctx, existing.ID)
	if err != nil {
		t.Fatalf("failed to find user: %v", err)
	}
	if len(user.Roles) != 2 {
		t.Errorf("expected roles unchanged, got %v", user.Roles)
	}
}

func TestEnsureAdmin_NewAccountNeedsPassword(t *testing.T) {
	store := memstore.New()
	if err := ensureAdmin(context.Background(), store, "admin@test.com", "", testLogger()); err == nil {
		t.Fatal("expected an error without admin_password")
	}
	if store.CountUsers() != 0 {
		t.Errorf("expected no user to be created, got %d", store.CountUsers())
	}
}

func TestEnsureAdmin_Mongo(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := entitystore.New(db, testLogger())

	if err := ensureAdmin(ctx, store, "admin@test.com", "correct horse", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}
	// Second run is a no-op.
	if err := ensureAdmin(ctx, store, "admin@test.com", "correct horse", testLogger()); err != nil {
		t.Fatalf("second ensureAdmin failed: %v", err)
	}

	n, err := db.Collection("users").CountDocuments(ctx, map[string]any{"email": "admin@test.com"})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 admin document, got %d", n)
	}
}

func TestValidateConfig(t *testing.T) {
	core := &config.CoreConfig{}
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"memory defaults", func(*AppConfig) {}, false},
		{"mongo with valid uri", func(c *AppConfig) {
			c.StoreBackend = BackendMongo
			c.MongoURI = "mongodb://localhost:27017"
		}, false},
		{"unknown backend", func(c *AppConfig) { c.StoreBackend = "postgres" }, true},
		{"short secret", func(c *AppConfig) { c.JWTSecret = "short" }, true},
		{"zero loader batch", func(c *AppConfig) { c.LoaderMaxBatch = 0 }, true},
		{"bad admin email", func(c *AppConfig) { c.AdminEmail = "not-an-email" }, true},
		{"short admin password", func(c *AppConfig) {
			c.AdminEmail = "admin@test.com"
			c.AdminPassword = "short"
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testAppConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(core, cfg, testLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHandlerServesGraphQLOverMemory(t *testing.T) {
	ctx := context.Background()
	cfg := testAppConfig()
	cfg.AdminEmail = "admin@test.com"
	cfg.AdminPassword = "correct horse"
	core := &config.CoreConfig{}

	deps, err := ConnectDB(ctx, core, cfg, testLogger())
	if err != nil {
		t.Fatalf("ConnectDB failed: %v", err)
	}
	if err := Startup(ctx, core, cfg, deps, testLogger()); err != nil {
		t.Fatalf("Startup failed: %v", err)
	}
	defer func() {
		if err := Shutdown(ctx, core, cfg, deps, testLogger()); err != nil {
			t.Errorf("Shutdown failed: %v", err)
		}
	}()

	h, err := BuildHandler(core, cfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler failed: %v", err)
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	post := func(token, query string) map[string]any {
		t.Helper()
		body, _ := json.Marshal(map[string]any{"query": query})
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/graphql", strings.NewReader(string(body)))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		var out map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		return out
	}

	login := post("", `mutation { login(email: "admin@test.com", password: "correct horse") { token } }`)
	data, _ := login["data"].(map[string]any)
	payload, _ := data["login"].(map[string]any)
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatalf("expected a token, got %v", login)
	}

	created := post(token, `mutation { createSchool(input: {longName: "North High", brandName: "North"}) { id longName } }`)
	if errs, ok := created["errors"]; ok {
		t.Fatalf("createSchool failed: %v", errs)
	}

	anon := post("", `{ schools { id } }`)
	if _, ok := anon["errors"]; !ok {
		t.Error("expected anonymous read to be rejected")
	}

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected health 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
}
