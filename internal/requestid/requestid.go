// Package requestid propagates a per-request correlation identifier.
//
// The identifier lives in the request's context.Context, never in package
// state, so concurrent requests cannot observe each other's ids. The
// structured log handler (internal/logging) reads it back with FromContext.
//
// Lifecycle of one request:
//
//	Begin  → reuse a well-formed inbound X-Request-ID, or generate a UUIDv4,
//	         and bind it into the request context
//	Echo   → write the id onto the response headers
//	next   → the rest of the chain runs with the id in r.Context()
package requestid

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Header is the canonical request/response header name.
const Header = "X-Request-ID"

// maxLength bounds inbound ids; longer values are treated as absent.
const maxLength = 200

// contextKey is unexported so only this package can read or write the id.
type contextKey struct{}

// WithRequestID stores id in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the request id bound to ctx.
// Returns ("", false) outside of a request.
func FromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// New returns a fresh identifier: 128 random bits rendered as a UUID string.
func New() string {
	return uuid.NewString()
}

// Begin decides the correlation id for r and returns r with the id bound
// into its context. It never fails: a missing or malformed header simply
// yields a generated id.
func Begin(r *http.Request) (*http.Request, string) {
	id, ok := parse(r.Header.Get(Header))
	if !ok {
		id = New()
	}
	return r.WithContext(WithRequestID(r.Context(), id)), id
}

// Echo writes id onto the response headers. Call it before the response
// body is written; headers set afterwards are silently dropped by net/http.
func Echo(w http.ResponseWriter, id string) {
	w.Header().Set(Header, id)
}

// Middleware binds a request id for every request and echoes it on the
// response. The header is set before next runs, so error responses and
// recovered panics further down the chain still carry it.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, id := Begin(r)
		Echo(w, id)
		next.ServeHTTP(w, r)
	})
}

// parse validates an inbound header value.
func parse(raw string) (string, bool) {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxLength {
		return "", false
	}
	for i := 0; i < len(id); i++ {
		// printable ASCII only; anything else could corrupt log lines or headers
		if id[i] < 0x20 || id[i] > 0x7e {
			return "", false
		}
	}
	return id, true
}
