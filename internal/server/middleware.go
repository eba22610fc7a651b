package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder captures the response status code for metrics and the
// access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withMetrics records request counts and latencies per route. It sits
// outermost in the chain so rejected requests are counted too.
func (s *ViewServer) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		if metrics := s.sc.Metrics(); metrics != nil {
			metrics.RecordHTTPRequest(r.Context(), r.Method, metricPath(r.URL.Path), rec.status, duration)
		}
		s.logger.Debug("request handled",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", duration),
		)
	})
}

// metricPath maps a request path onto a bounded label set. Anything
// outside the known routes is collapsed so probes and scanners cannot
// inflate metric cardinality.
func metricPath(path string) string {
	switch path {
	case "/api/events", "/api/events.ics", "/api/view", "/api/session",
		"/api/session/auth-url", "/api/session/signin", "/api/session/signout",
		"/api/slots", "/api/notices",
		"/healthz", "/readyz", "/healthz/detailed":
		return path
	default:
		return "other"
	}
}

// withBasicAuth guards the API with HTTP basic auth. The liveness and
// readiness endpoints stay open for probes; everything else, including
// the detailed health view, requires credentials.
func (s *ViewServer) withBasicAuth(next http.Handler) http.Handler {
	username := s.sc.Config().ViewUsername
	password := s.sc.Config().ViewPassword

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok || !secureCompare(user, username) || !secureCompare(pass, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="gridcal"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(given, actual string) bool {
	if len(given) != len(actual) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(actual)) == 1
}
