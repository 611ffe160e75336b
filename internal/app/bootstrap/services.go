// internal/app/bootstrap/services.go
package bootstrap

import (
	graphqlfeature "github.com/dalemusser/schoolhub/internal/app/features/graphql"
	"github.com/dalemusser/schoolhub/internal/app/policy/invariants"
	"github.com/dalemusser/schoolhub/internal/app/store/audit"
	"github.com/dalemusser/schoolhub/internal/app/store/entitystore"
	"github.com/dalemusser/schoolhub/internal/app/store/errorlog"
	"github.com/dalemusser/schoolhub/internal/app/store/memstore"
	"github.com/dalemusser/schoolhub/internal/app/system/auditlog"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/errorsink"
	"github.com/dalemusser/schoolhub/internal/app/system/ratelimit"
	"github.com/dalemusser/schoolhub/internal/app/system/relations"
	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"github.com/dalemusser/schoolhub/internal/app/system/txn"
	"github.com/dalemusser/schoolhub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Services are the long-lived collaborators built once per process and
// shared by every request.
type Services struct {
	Store     graphqlfeature.Store
	Txn       txn.Runner
	Tokens    *auth.Tokens
	Checker   *invariants.Checker
	Relations *relations.Maintainer
	Audit     *auditlog.Logger
	Sink      *errorsink.Sink
	Logins    *ratelimit.LoginLimiter

	reconciler *workers.Reconciler
}

// newServices wires the services over db, or over an in-memory store
// when db is nil.
func newServices(appCfg AppConfig, db *mongo.Database, logger *zap.Logger) *Services {
	s := &Services{
		Tokens: auth.NewTokens(appCfg.JWTSecret, appCfg.JWTIssuer, appCfg.JWTTTL),
		Logins: ratelimit.NewLoginLimiter(),
	}
	auditCfg := auditlog.Config{Auth: appCfg.AuditAuth, Admin: appCfg.AuditAdmin}

	if db == nil {
		s.Store = memstore.New()
		s.Txn = txn.None{}
		s.Audit = auditlog.New(nil, logger, auditCfg)
		s.Sink = errorsink.New(nil, logger, appCfg.ErrorLog, timeouts.Short())
	} else {
		s.Store = entitystore.New(db, logger)
		s.Txn = txn.Mongo{DB: db, Log: logger}
		s.Audit = auditlog.New(audit.New(db), logger, auditCfg)
		s.Sink = errorsink.New(errorlog.New(db), logger, appCfg.ErrorLog, timeouts.Short())
	}

	s.Checker = invariants.New(s.Store)
	s.Relations = relations.New(s.Store, logger)
	return s
}

// graphqlDeps adapts the services to the resolver layer.
func (s *Services) graphqlDeps(logger *zap.Logger) graphqlfeature.Deps {
	return graphqlfeature.Deps{
		Store:     s.Store,
		Checker:   s.Checker,
		Relations: s.Relations,
		Tokens:    s.Tokens,
		Txn:       s.Txn,
		Audit:     s.Audit,
		Sink:      s.Sink,
		Logins:    s.Logins,
		Log:       logger,
	}
}
