package middleware

import (
	"net/http"
	"strings"
)

// CacheControl sets Cache-Control per route. Pages and API responses carry
// a user's lifestyle inputs and must never be stored by shared caches.
type CacheControl struct{}

// NewCacheControl creates a new cache control middleware.
func NewCacheControl() *CacheControl {
	return &CacheControl{}
}

// Apply adds cache headers based on the request path.
func (c *CacheControl) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", cacheControlFor(r.URL.Path))
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Pragma", "no-cache")
		}
		next.ServeHTTP(w, r)
	})
}

func cacheControlFor(path string) string {
	switch {
	case strings.HasPrefix(path, "/static/"):
		lower := strings.ToLower(path)
		switch {
		case strings.HasSuffix(lower, ".svg"), strings.HasSuffix(lower, ".ico"), strings.HasSuffix(lower, ".png"):
			return "public, max-age=31536000, immutable"
		case strings.HasSuffix(lower, ".css"), strings.HasSuffix(lower, ".js"):
			return "public, max-age=86400, must-revalidate"
		default:
			return "public, max-age=3600"
		}
	case path == "/api/factors":
		// The factor table only changes with a deploy.
		return "public, max-age=300"
	case path == "/":
		return "no-cache, must-revalidate"
	default:
		// /report, /api/report, probes and metrics.
		return "no-store"
	}
}
