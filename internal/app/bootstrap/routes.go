// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	graphqlfeature "github.com/dalemusser/schoolhub/internal/app/features/graphql"
	healthfeature "github.com/dalemusser/schoolhub/internal/app/features/health"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/limits"
	"github.com/dalemusser/schoolhub/internal/app/system/loaders"
	"github.com/dalemusser/schoolhub/internal/app/system/logctx"
	"github.com/dalemusser/schoolhub/internal/app/system/metrics"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed.
//
// Every request gets a request id, metrics and (when it carries a bearer
// token) an actor. /graphql additionally gets a fresh loader scope, so
// batching and caching never cross requests.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	svc := deps.Services

	schema, err := graphqlfeature.NewSchema(svc.graphqlDeps(logger), graphqlfeature.Options{
		MaxParallelism: appCfg.GraphQLMaxParallelism,
		MaxDepth:       appCfg.GraphQLMaxDepth,
	})
	if err != nil {
		logger.Error("graphql schema parse failed", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logctx.Middleware)
	r.Use(metrics.Middleware)
	r.Use(auth.LoadActor(svc.Tokens, logger))

	// Health check endpoint for load balancers and orchestrators.
	// A nil client must stay an untyped nil inside the interface.
	var pinger healthfeature.Pinger
	if deps.SchoolHubMongoClient != nil {
		pinger = deps.SchoolHubMongoClient
	}
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(pinger, logger)))

	r.Handle("/metrics", metrics.Handler())

	settings := loaders.Settings{
		Wait:     appCfg.LoaderWait,
		MaxBatch: appCfg.LoaderMaxBatch,
		Timeout:  appCfg.LoaderTimeout,
	}
	r.Route("/graphql", func(gr chi.Router) {
		gr.Use(middleware.RequestSize(limits.MaxGraphQLBodySize))
		gr.Use(loaders.Middleware(svc.Store, settings, logger))
		gr.Mount("/", graphqlfeature.Routes(schema))
	})

	return r, nil
}
