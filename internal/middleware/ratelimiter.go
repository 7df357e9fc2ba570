package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// IPRateLimiter keeps one token bucket per remote IP. A bucket expires after
// idleTTL without requests, and at most maxClients buckets are kept, the least
// recently used going first.
func IPRateLimiter(rps float64, burst, maxClients int, idleTTL time.Duration) func(next http.Handler) http.Handler {
	clients := expirable.NewLRU[string, *rate.Limiter](maxClients, nil, idleTTL)
	var mu sync.Mutex

	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		limiter, ok := clients.Get(ip)
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
		// Add refreshes the expiry, Get does not.
		clients.Add(ip, limiter)
		return limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if !limiterFor(ip).Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"status":  http.StatusTooManyRequests,
					"message": http.StatusText(http.StatusTooManyRequests),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
