// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/system/inputval"
	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minSecretLen is the shortest accepted jwt_secret.
const minSecretLen = 32

// appConfigKeys defines the configuration keys for SchoolHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: SCHOOLHUB_MONGO_URI, SCHOOLHUB_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "store_backend", Default: BackendMongo, Desc: "Entity store: 'mongo' or 'memory'"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "schoolhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Bearer tokens
	{Name: "jwt_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Token signing key (must be strong in production)"},
	{Name: "jwt_issuer", Default: "schoolhub", Desc: "Token issuer claim"},
	{Name: "jwt_ttl", Default: "24h", Desc: "Token lifetime (e.g., 1h, 24h)"},

	// Batch loaders
	{Name: "loader_wait", Default: "2ms", Desc: "How long a loader batch stays open after its first key"},
	{Name: "loader_max_batch", Default: 100, Desc: "Dispatch a loader batch early at this many keys"},
	{Name: "loader_timeout", Default: "5s", Desc: "Deadline for one loader batch fetch"},

	// GraphQL limits
	{Name: "graphql_max_parallelism", Default: 10, Desc: "Max resolvers run in parallel per request"},
	{Name: "graphql_max_depth", Default: 12, Desc: "Max query depth"},

	// Background repair
	{Name: "reconcile_interval", Default: "10m", Desc: "How often to repair school student lists (0 disables)"},

	// Error and audit logging
	{Name: "error_log", Default: "all", Desc: "Resolver error logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Admin bootstrap
	{Name: "admin_email", Default: "", Desc: "Email of the bootstrap admin (promotes/creates on startup)"},
	{Name: "admin_password", Default: "", Desc: "Password for a newly created bootstrap admin"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config.yaml/json/toml
// files, environment variables (WAFFLE_* for core, SCHOOLHUB_* for app) and
// command-line flags, merged with precedence flags > env > files > defaults.
// Operation timeouts are read here too (TIMEOUT_* variables) so that the
// database connection made next already honours them.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "SCHOOLHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		StoreBackend:     appValues.String("store_backend"),
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret: appValues.String("jwt_secret"),
		JWTIssuer: appValues.String("jwt_issuer"),
		JWTTTL:    appValues.Duration("jwt_ttl", 24*time.Hour),

		LoaderWait:     appValues.Duration("loader_wait", 2*time.Millisecond),
		LoaderMaxBatch: appValues.Int("loader_max_batch"),
		LoaderTimeout:  appValues.Duration("loader_timeout", 5*time.Second),

		GraphQLMaxParallelism: appValues.Int("graphql_max_parallelism"),
		GraphQLMaxDepth:       appValues.Int("graphql_max_depth"),

		ReconcileInterval: appValues.Duration("reconcile_interval", 10*time.Minute),

		ErrorLog:   appValues.String("error_log"),
		AuditAuth:  appValues.String("audit_auth"),
		AuditAdmin: appValues.String("audit_admin"),

		AdminEmail:    appValues.String("admin_email"),
		AdminPassword: appValues.String("admin_password"),
	}

	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("operation timeouts overridden from environment", zap.Int("count", n))
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The MongoDB URI format is checked here to catch configuration errors
// before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.StoreBackend {
	case BackendMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
	case BackendMemory:
		logger.Warn("using the in-memory store; data is lost on restart")
	default:
		return fmt.Errorf("store_backend must be %q or %q, got %q", BackendMongo, BackendMemory, appCfg.StoreBackend)
	}

	if len(appCfg.JWTSecret) < minSecretLen {
		return fmt.Errorf("jwt_secret must be at least %d bytes", minSecretLen)
	}
	if appCfg.JWTTTL <= 0 {
		return fmt.Errorf("jwt_ttl must be positive")
	}
	if appCfg.LoaderWait <= 0 || appCfg.LoaderMaxBatch <= 0 || appCfg.LoaderTimeout <= 0 {
		return fmt.Errorf("loader_wait, loader_max_batch and loader_timeout must be positive")
	}
	if appCfg.ReconcileInterval < 0 {
		return fmt.Errorf("reconcile_interval must not be negative")
	}

	if appCfg.AdminEmail != "" && !inputval.IsValidEmail(appCfg.AdminEmail) {
		return fmt.Errorf("admin_email %q is not a valid address", appCfg.AdminEmail)
	}
	if appCfg.AdminPassword != "" && !inputval.IsValidPassword(appCfg.AdminPassword) {
		return fmt.Errorf("admin_password must be %d to %d characters", inputval.MinPasswordLen, inputval.MaxPasswordLen)
	}
	return nil
}
