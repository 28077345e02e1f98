package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/ecobuddy/internal/logging"
	"github.com/HammerMeetNail/ecobuddy/internal/metrics"
)

// RateLimiter is a fixed-window request counter kept in Redis. Each window
// gets its own key, so counts reset on the window boundary and stale keys
// expire on their own.
type RateLimiter struct {
	redis    *redis.Client
	limit    int64
	window   time.Duration
	prefix   string
	keyFunc  func(*http.Request) string
	failOpen bool
	now      func() time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window for
// each key returned by keyFunc (connection address when nil). A nil client
// disables limiting. failOpen decides whether Redis errors let requests
// through.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration, prefix string, keyFunc func(*http.Request) string, failOpen bool) *RateLimiter {
	if keyFunc == nil {
		keyFunc = RemoteIP
	}
	return &RateLimiter{
		redis:    client,
		limit:    limit,
		window:   window,
		prefix:   prefix,
		keyFunc:  keyFunc,
		failOpen: failOpen,
		now:      time.Now,
	}
}

// NewReportRateLimiter limits report generation per client IP per hour.
// Every report may cost a model call, so this is the only limited route.
// Proxy headers are only consulted when trustProxy is set.
func NewReportRateLimiter(client *redis.Client, perHour int64, trustProxy bool) *RateLimiter {
	return NewRateLimiter(client, perHour, time.Hour, "ratelimit:report", ClientIPFunc(trustProxy), true)
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.redis == nil {
			next.ServeHTTP(w, r)
			return
		}

		allowed, remaining, reset, err := rl.allow(r.Context(), rl.keyFunc(r))
		if err != nil {
			logging.Error("Rate limiter unavailable", map[string]interface{}{
				"error":  err.Error(),
				"prefix": rl.prefix,
			})
			if rl.failOpen {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(rl.limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if !allowed {
			retry := int64(reset.Sub(rl.now()).Seconds())
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retry, 10))
			metrics.RateLimited.WithLabelValues(rl.prefix).Inc()
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ctx context.Context, id string) (bool, int64, time.Time, error) {
	windowStart := rl.now().Truncate(rl.window)
	reset := windowStart.Add(rl.window)
	key := fmt.Sprintf("%s:%s:%d", rl.prefix, id, windowStart.Unix())

	pipe := rl.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, reset, fmt.Errorf("counting requests: %w", err)
	}

	count := incr.Val()
	remaining := rl.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= rl.limit, remaining, reset, nil
}

// GetClientIP returns the originating client address, preferring the first
// X-Forwarded-For hop, then X-Real-IP, then the connection's remote address.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if host, _, err := net.SplitHostPort(first); err == nil {
			return host
		}
		if first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	return RemoteIP(r)
}

// RemoteIP returns the host of the connection's remote address, ignoring
// any client-supplied headers.
func RemoteIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// ClientIPFunc picks GetClientIP when proxy headers are trusted and
// RemoteIP otherwise.
func ClientIPFunc(trustProxy bool) func(*http.Request) string {
	if trustProxy {
		return GetClientIP
	}
	return RemoteIP
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
