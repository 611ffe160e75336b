// Package graphql is the resolver layer: it parses the API schema, checks
// authorization and input, runs the cross-entity invariants, and reads
// related records through the request's loader scope.
package graphql

import (
	"context"
	_ "embed"
	"net/http"

	"github.com/dalemusser/schoolhub/internal/app/policy/invariants"
	"github.com/dalemusser/schoolhub/internal/app/system/auditlog"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/errorsink"
	"github.com/dalemusser/schoolhub/internal/app/system/loaders"
	"github.com/dalemusser/schoolhub/internal/app/system/ratelimit"
	"github.com/dalemusser/schoolhub/internal/app/system/relations"
	"github.com/dalemusser/schoolhub/internal/app/system/txn"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

//go:embed schema.graphql
var schemaSDL string

// Store is everything the resolvers read and write. Both the MongoDB
// gateway and the in-memory store implement it.
type Store interface {
	loaders.Source
	relations.Store
	invariants.Store

	GetUser(ctx context.Context, id primitive.ObjectID) (models.User, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context, limit, offset int64) ([]models.User, error)
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	UpdateUser(ctx context.Context, id primitive.ObjectID, patch models.User) (models.User, error)
	AddRoles(ctx context.Context, id primitive.ObjectID, roles []string) (models.User, error)
	RemoveRole(ctx context.Context, id primitive.ObjectID, role string) (models.User, error)
	SoftDeleteUser(ctx context.Context, id, actor primitive.ObjectID) (models.User, error)
	HardDeleteUser(ctx context.Context, id primitive.ObjectID) error

	GetSchool(ctx context.Context, id primitive.ObjectID) (models.School, error)
	ListSchools(ctx context.Context, limit, offset int64) ([]models.School, error)
	CreateSchool(ctx context.Context, sc models.School) (models.School, error)
	UpdateSchool(ctx context.Context, id primitive.ObjectID, patch models.School) (models.School, error)
	SoftDeleteSchool(ctx context.Context, id, actor primitive.ObjectID) (models.School, error)

	GetStudent(ctx context.Context, id primitive.ObjectID) (models.Student, error)
	ListStudents(ctx context.Context, schoolID *primitive.ObjectID, limit, offset int64) ([]models.Student, error)
	CreateStudent(ctx context.Context, st models.Student) (models.Student, error)
	UpdateStudent(ctx context.Context, id primitive.ObjectID, patch models.Student) (models.Student, error)
	SoftDeleteStudent(ctx context.Context, id, actor primitive.ObjectID) (models.Student, error)
	HardDeleteStudent(ctx context.Context, id primitive.ObjectID) error
}

// Deps are the collaborators the resolvers need. Audit, Sink and Logins may be nil.
type Deps struct {
	Store     Store
	Checker   *invariants.Checker
	Relations *relations.Maintainer
	Tokens    *auth.Tokens
	Txn       txn.Runner
	Audit     *auditlog.Logger
	Sink      *errorsink.Sink
	Logins    *ratelimit.LoginLimiter
	Log       *zap.Logger
}

// Options bound query execution.
type Options struct {
	MaxParallelism int
	MaxDepth       int
}

// NewSchema parses the schema and binds it to a root resolver.
func NewSchema(d Deps, opt Options) (*graphql.Schema, error) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Txn == nil {
		d.Txn = txn.None{}
	}
	if d.Checker == nil {
		d.Checker = invariants.New(d.Store)
	}
	if d.Relations == nil {
		d.Relations = relations.New(d.Store, d.Log)
	}

	opts := []graphql.SchemaOpt{
		graphql.UseFieldResolvers(),
		graphql.Logger(panicLogger{log: d.Log}),
	}
	if opt.MaxParallelism > 0 {
		opts = append(opts, graphql.MaxParallelism(opt.MaxParallelism))
	}
	if opt.MaxDepth > 0 {
		opts = append(opts, graphql.MaxDepth(opt.MaxDepth))
	}
	return graphql.ParseSchema(schemaSDL, &Resolver{d: d}, opts...)
}

// Routes returns a subrouter serving POST requests for schema.
// Mount it at /graphql.
func Routes(schema *graphql.Schema) chi.Router {
	r := chi.NewRouter()
	h := &relay.Handler{Schema: schema}
	r.Post("/", h.ServeHTTP)
	return r
}

// Handler returns the bare HTTP handler for schema.
func Handler(schema *graphql.Schema) http.Handler {
	return &relay.Handler{Schema: schema}
}

// panicLogger reports resolver panics through zap instead of the standard logger.
type panicLogger struct{ log *zap.Logger }

func (p panicLogger) LogPanic(_ context.Context, value interface{}) {
	p.log.Error("graphql resolver panic", zap.Any("panic", value), zap.Stack("stack"))
}

// Resolver is the root of the query and mutation types.
type Resolver struct {
	d Deps
}
