package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/sakif/base-backend/internal/handler"
	"github.com/sakif/base-backend/internal/logging"
)

// AllowedHosts rejects requests whose Host header is not in allowed with a
// 400 JSON body. This stops Host-header poisoning of anything that builds
// absolute URLs from r.Host (the HTTPS redirect, for one).
//
// Patterns, matched case-insensitively against the host without its port:
//
//	"api.example.com"  exactly that host
//	".example.com"     example.com and every subdomain of it
//	"*"                anything
//
// An empty list rejects every request.
func AllowedHosts(allowed []string, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logging.Named(logger, "security.disallowed_host")

	patterns := make([]string, 0, len(allowed))
	for _, p := range allowed {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			patterns = append(patterns, p)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := hostWithoutPort(r.Host)
			if !hostAllowed(host, patterns) {
				logger.WarnContext(r.Context(), "invalid HTTP_HOST header",
					slog.String("host", r.Host),
					slog.String("path", r.URL.Path),
				)
				handler.WriteErrorStatus(w, http.StatusBadRequest, "disallowed_host",
					"Invalid HTTP_HOST header. You may need to add it to ALLOWED_HOSTS.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hostAllowed(host string, patterns []string) bool {
	if host == "" {
		return false
	}
	for _, p := range patterns {
		switch {
		case p == "*":
			return true
		case strings.HasPrefix(p, "."):
			if host == p[1:] || strings.HasSuffix(host, p) {
				return true
			}
		case host == p:
			return true
		}
	}
	return false
}

// hostWithoutPort lower-cases host and strips the port and any trailing dot.
// "[::1]:8000" → "::1", "Example.COM.:443" → "example.com".
func hostWithoutPort(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else {
		host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	}
	return strings.TrimSuffix(host, ".")
}
