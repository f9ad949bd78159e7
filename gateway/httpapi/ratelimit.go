package httpapi

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimit configures one keyed rate limit bucket.
type RateLimit struct {
	RatePerSecond float64
	Burst         int
}

// rateLimiter is a per-client-identifier token bucket limiter, adapted from
// gateway/middleware/ratelimit.go: same visitors map keyed by "routeKey|
// clientID" with a *rate.Limiter per key and a self-expiring cleanup
// goroutine, simplified to one limit per route rather than the teacher's
// additional per-method token weighting (this API has no endpoint whose
// cost varies by request shape).
type rateLimiter struct {
	mu       sync.Mutex
	limits   map[string]RateLimit
	visitors map[string]*rate.Limiter
}

func newRateLimiter(limits map[string]RateLimit) *rateLimiter {
	return &rateLimiter{limits: limits, visitors: map[string]*rate.Limiter{}}
}

func (rl *rateLimiter) middleware(routeKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit, ok := rl.limits[routeKey]
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			bucketKey := routeKey + "|" + clientIdentifier(r)
			limiter := rl.obtain(bucketKey, limit)
			if !limiter.Allow() {
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *rateLimiter) obtain(key string, limit RateLimit) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if limiter, ok := rl.visitors[key]; ok {
		return limiter
	}
	perSecond := limit.RatePerSecond
	if perSecond <= 0 {
		perSecond = 1
	}
	burst := limit.Burst
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	rl.visitors[key] = limiter
	go rl.expire(key)
	return limiter
}

func (rl *rateLimiter) expire(key string) {
	time.Sleep(5 * time.Minute)
	rl.mu.Lock()
	delete(rl.visitors, key)
	rl.mu.Unlock()
}

func clientIdentifier(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get("X-API-Key")); apiKey != "" {
		return "api-key:" + apiKey
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); ip != "" {
		if comma := strings.IndexByte(ip, ','); comma > 0 {
			ip = strings.TrimSpace(ip[:comma])
		}
		if parsed := net.ParseIP(ip); parsed != nil {
			return parsed.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
