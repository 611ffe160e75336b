// Package auth authenticates API callers with HS256 bearer tokens and
// carries the signed-in actor through the request context.
package auth

import (
	"context"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current-actor helpers                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// Actor is the authenticated caller. The middleware builds it from token
// claims; authz.SignedIn replaces the roles with the stored ones.
type Actor struct {
	ID    primitive.ObjectID
	Email string
	Roles []string
}

// HasAnyRole reports whether the actor holds at least one of roles.
func (a *Actor) HasAnyRole(roles ...string) bool {
	if a == nil {
		return false
	}
	for _, have := range a.Roles {
		for _, want := range roles {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

type ctxKey string

const actorKey ctxKey = "actor"

// WithActor returns ctx carrying a. Used by the middleware and by tests.
func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// CurrentActor returns the actor and a "found?" flag.
func CurrentActor(ctx context.Context) (*Actor, bool) {
	a, ok := ctx.Value(actorKey).(*Actor)
	return a, ok && a != nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// LoadActor verifies an "Authorization: Bearer <jwt>" header and injects
// the actor into the request context. Requests without a valid token pass
// through anonymously; resolvers decide what anonymous callers may do.
func LoadActor(tokens *Tokens, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearer(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			actor, err := tokens.Verify(raw)
			if err != nil {
				logger.Debug("rejected bearer token", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
