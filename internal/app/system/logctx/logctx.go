// Package logctx attaches per-request metadata (request id, client IP,
// user agent) to the context, and derives request-scoped zap loggers
// from it.
package logctx

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HeaderRequestID is echoed back on every response.
const HeaderRequestID = "X-Request-ID"

// Meta describes the request that produced a context.
type Meta struct {
	RequestID string
	IP        string
	UserAgent string
	Path      string
}

type ctxKey string

const metaKey ctxKey = "request_meta"

// With returns ctx carrying m.
func With(ctx context.Context, m Meta) context.Context {
	return context.WithValue(ctx, metaKey, m)
}

// From returns the request metadata, or a zero Meta outside a request.
func From(ctx context.Context) Meta {
	m, _ := ctx.Value(metaKey).(Meta)
	return m
}

// Logger returns base annotated with the request id, when there is one.
func Logger(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	if id := From(ctx).RequestID; id != "" {
		return base.With(zap.String("request_id", id))
	}
	return base
}

// Middleware assigns a request id (reusing a well-formed incoming
// X-Request-ID) and records the caller's address.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		m := Meta{
			RequestID: id,
			IP:        ClientIP(r),
			UserAgent: r.UserAgent(),
			Path:      r.URL.Path,
		}
		next.ServeHTTP(w, r.WithContext(With(r.Context(), m)))
	})
}

// ClientIP prefers proxy headers, then falls back to RemoteAddr without
// its port.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
