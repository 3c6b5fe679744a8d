package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/JonMunkholm/donorcrm/internal/core"
)

// RateLimiter keeps one token bucket per client IP. Buckets of clients
// that stay quiet for the idle period are evicted.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *cache.Cache
	limit    rate.Limit
	burst    int

	// OnReject is called for every rejected request when set.
	OnReject func()
}

// NewRateLimiter allows perMinute sustained requests per IP with the
// given burst.
func NewRateLimiter(perMinute, burst int, idle time.Duration) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: cache.New(idle, 2*idle),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
	}
}

// limiterFor returns the bucket for ip, creating it on first use. Each
// call refreshes the entry's expiry.
func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters.Get(ip)
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
	}
	rl.limiters.SetDefault(ip, l)
	return l.(*rate.Limiter)
}

// Allow reports whether a request from ip may proceed now.
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.limiterFor(ip).Allow()
}

// Clients returns the number of tracked IPs.
func (rl *RateLimiter) Clients() int {
	return rl.limiters.ItemCount()
}

// Middleware rejects requests over the limit with 429. It must run after
// TrustedRealIP so RemoteAddr is the client address.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r.RemoteAddr)

		l := rl.limiterFor(ip)
		if !l.Allow() {
			if rl.OnReject != nil {
				rl.OnReject()
			}
			retry := time.Duration(float64(time.Second) / float64(rl.limit))
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			writeError(w, http.StatusTooManyRequests, core.UserMessage{
				Message: "Too many requests",
				Action:  "Please wait a moment before trying again",
				Code:    "RATE001",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from a RemoteAddr.
func clientIP(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
