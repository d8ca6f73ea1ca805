package server

import (
	"net/http"
	"time"

	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/logging"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming responses working through the wrapper.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// InstrumentHandler records request metrics and logs each request at debug
// level. The route pattern, not the raw path, is used as the metric label.
func InstrumentHandler(next http.Handler, metrics *instrumentation.Metrics, logger logging.Logger) http.Handler {
	logger = logging.OrDiscard(logger)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(r.Context(), r.Method, route, rec.status, duration)
		logger.Debug("http request",
			"method", r.Method,
			"route", route,
			"status", rec.status,
			"duration", duration)
	})
}
