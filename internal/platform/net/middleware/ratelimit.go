package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	perr "habitreward/internal/platform/errors"

	"golang.org/x/time/rate"
)

// RateLimitOptions configures the per-client token bucket
type RateLimitOptions struct {
	// RPS is the sustained request rate per client key
	RPS rate.Limit
	// Burst is the bucket size per client key
	Burst int
	// KeyFunc derives the client key, defaults to remote host
	KeyFunc func(r *http.Request) string
	// IdleTTL evicts limiters not seen for this long, defaults to 10 minutes
	IdleTTL time.Duration
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimit rejects clients exceeding the configured rate with 429
func RateLimit(o RateLimitOptions, write func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	if o.RPS <= 0 {
		o.RPS = 10
	}
	if o.Burst <= 0 {
		o.Burst = 20
	}
	if o.KeyFunc == nil {
		o.KeyFunc = func(r *http.Request) string {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				return r.RemoteAddr
			}
			return host
		}
	}
	if o.IdleTTL <= 0 {
		o.IdleTTL = 10 * time.Minute
	}

	var (
		mu      sync.Mutex
		clients = map[string]*limiterEntry{}
		lastGC  = time.Now()
	)

	take := func(key string) bool {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		if now.Sub(lastGC) > o.IdleTTL {
			for k, e := range clients {
				if now.Sub(e.seen) > o.IdleTTL {
					delete(clients, k)
				}
			}
			lastGC = now
		}

		e, ok := clients[key]
		if !ok {
			e = &limiterEntry{lim: rate.NewLimiter(o.RPS, o.Burst)}
			clients[key] = e
		}
		e.seen = now
		return e.lim.Allow()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !take(o.KeyFunc(r)) {
				write(w, r, perr.RateLimitedf("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
