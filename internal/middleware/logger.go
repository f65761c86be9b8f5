package middleware

import (
	"net/http"
	"time"

	"app/internal/logger"
)

// LoggerMiddleware logs incoming HTTP requests.
func LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		logger := logger.New()
		logger.Debug().
			Str("duration", time.Since(start).String()).
			Msgf("%s %s", r.Method, r.URL.RequestURI())
	})
}
