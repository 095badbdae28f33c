package middleware

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitPaths limits requests to the given paths to requestsPerMinute
// per client IP. Other paths pass through unlimited. Rejected requests get
// a JSON 429.
func RateLimitPaths(requestsPerMinute int, paths []string) func(http.Handler) http.Handler {
	limiter := httprate.Limit(requestsPerMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = writeError(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
		}),
	)
	return func(next http.Handler) http.Handler {
		limited := limiter(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(paths, r.URL.Path) {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
