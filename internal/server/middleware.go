package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// requestLogger logs one line per request and records the request metrics,
// labelled by the chi route pattern rather than the raw path so document ids
// do not explode the label space.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &httpStatusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r)

			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" {
				pattern = r.URL.Path
			}
			elapsed := time.Since(start)
			httpRequestsTotal.WithLabelValues(pattern, strconv.Itoa(recorder.status)).Inc()
			requestDuration.WithLabelValues(pattern).Observe(elapsed.Seconds())
			log.Info("Request handled.",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"durationMs", elapsed.Milliseconds(),
			)
		})
	}
}
