// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// Store backends accepted by store_backend.
const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// the framework-level settings (ports, TLS, log level, CORS, body limits);
// everything specific to SchoolHub lives here and is passed to every
// lifecycle hook.
type AppConfig struct {
	// Persistence
	StoreBackend     string // "mongo" or "memory"
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer tokens
	JWTSecret string // HMAC signing key (at least 32 bytes)
	JWTIssuer string
	JWTTTL    time.Duration

	// Request-scoped batch loaders
	LoaderWait     time.Duration // batch window after the first key
	LoaderMaxBatch int           // dispatch early at this many keys
	LoaderTimeout  time.Duration // deadline for one batch fetch

	// GraphQL execution limits
	GraphQLMaxParallelism int
	GraphQLMaxDepth       int

	// Background repair of schools.students
	ReconcileInterval time.Duration // 0 disables the worker

	// Error and audit destinations: "all", "db", "log" or "off"
	ErrorLog   string
	AuditAuth  string
	AuditAdmin string

	// Bootstrap admin (created or promoted on startup)
	AdminEmail    string
	AdminPassword string
}
