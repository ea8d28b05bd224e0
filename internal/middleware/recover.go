package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/base-backend/internal/handler"
	"github.com/sakif/base-backend/internal/logging"
)

// Recover turns a panic in a handler into a JSON 500 and an ERROR log line
// carrying the panic value and stack. The client only ever sees the
// generic internal_error body.
//
// http.ErrAbortHandler is re-panicked: net/http uses it to abort a response
// on purpose and handles it itself.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logging.Named(logger, "http.recover")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				logger.ErrorContext(r.Context(), "panic while serving request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					logging.Exception(fmt.Errorf("panic: %w", err)),
				)
				handler.WriteErrorStatus(w, http.StatusInternalServerError, "internal_error", "An internal error occurred")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
