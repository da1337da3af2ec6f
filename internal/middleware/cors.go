package middleware

import (
	"net/http"
	"strings"

	"SOSDesk/internal/config"
)

// CORS lets the dashboard UI call the operator API from its own origin. The
// report download needs Content-Disposition exposed to scripts.
func CORS(sec config.SecurityConfig) func(http.Handler) http.Handler {
	allowAll := len(sec.CORSAllowedOrigins) == 1 && sec.CORSAllowedOrigins[0] == "*"
	origins := make(map[string]bool, len(sec.CORSAllowedOrigins))
	for _, o := range sec.CORSAllowedOrigins {
		origins[strings.TrimSpace(o)] = true
	}
	methods := strings.Join(sec.CORSAllowedMethods, ",")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && origins[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}

			w.Header().Set("Access-Control-Allow-Methods", methods)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
