package middleware

import (
	"net/http"
	"runtime/debug"

	"SOSDesk/internal/logger"
)

// Recovery turns a handler panic into a 500. The panic value stays in the log;
// clients get a fixed message.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					log.Error("PANIC in %s %s: %v\n%s", r.Method, r.URL.Path, err, debug.Stack())

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error": "internal server error"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
