package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/HammerMeetNail/ecobuddy/internal/logging"
	"github.com/HammerMeetNail/ecobuddy/internal/metrics"
)

// responseRecorder wraps http.ResponseWriter to capture status code and size.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// quietPaths are probed constantly by orchestrators and scrapers; they are
// logged at debug level only.
var quietPaths = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/live":    true,
	"/metrics": true,
}

// knownRoutes bounds the route label so arbitrary paths cannot grow the
// metric's cardinality.
var knownRoutes = map[string]bool{
	"/":            true,
	"/report":      true,
	"/api/report":  true,
	"/api/factors": true,
	"/health":      true,
	"/ready":       true,
	"/live":        true,
	"/metrics":     true,
}

func routeLabel(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/static/") {
		return "/static/"
	}
	return "other"
}

// RequestLogger logs HTTP requests with timing information and records
// request metrics.
type RequestLogger struct {
	logger *logging.Logger
}

// NewRequestLogger creates a new request logging middleware.
func NewRequestLogger(logger *logging.Logger) *RequestLogger {
	if logger == nil {
		logger = logging.Default
	}
	return &RequestLogger{logger: logger}
}

// Apply wraps the handler to log requests.
func (l *RequestLogger) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(recorder, r)

		duration := time.Since(start)
		route := routeLabel(r.URL.Path)
		metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(recorder.statusCode/100)+"xx").Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(duration.Seconds())

		// Query strings are left out: form values never travel in them, and
		// the API takes JSON bodies.
		fields := map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      recorder.statusCode,
			"size":        recorder.size,
			"duration_ms": duration.Milliseconds(),
			"client_ip":   GetClientIP(r),
			"user_agent":  r.UserAgent(),
		}

		switch {
		case recorder.statusCode >= 500:
			l.logger.Error("HTTP request", fields)
		case recorder.statusCode >= 400:
			l.logger.Warn("HTTP request", fields)
		case quietPaths[r.URL.Path]:
			l.logger.Debug("HTTP request", fields)
		default:
			l.logger.Info("HTTP request", fields)
		}
	})
}
