package server

import (
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// corsMiddleware adds CORS headers to all responses
func corsMiddleware(allowedOrigin string) func(http.Handler) http.Handler {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ipRateLimiter keeps one token bucket per client IP
type ipRateLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*clientLimiter
	limit      rate.Limit
	burst      int
	idleTTL    time.Duration
	trustProxy bool
	logger     *log.Logger
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(rps float64, burst int, trustProxy bool, logger *log.Logger) *ipRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &ipRateLimiter{
		limiters:   make(map[string]*clientLimiter),
		limit:      rate.Limit(rps),
		burst:      burst,
		idleTTL:    10 * time.Minute,
		trustProxy: trustProxy,
		logger:     logger,
	}
}

func (l *ipRateLimiter) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.limiters[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}

// sweep drops the buckets of clients idle for longer than idleTTL
func (l *ipRateLimiter) sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, c := range l.limiters {
		if now.Sub(c.lastSeen) > l.idleTTL {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

func (l *ipRateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// startSweeper runs sweep every interval until the returned stop func is called
func (l *ipRateLimiter) startSweeper(interval time.Duration) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				if n := l.sweep(now); n > 0 {
					l.logger.Printf("Evicted %d idle rate limit buckets", n)
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

// Middleware rejects requests over the per-IP budget with 429
func (l *ipRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, l.trustProxy)
		if !l.get(ip, time.Now()).Allow() {
			l.logger.Printf("Rate limit exceeded: ip=%s path=%s", ip, r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"Too Many Requests","message":"rate limit exceeded","status":429}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the peer address, or the first X-Forwarded-For hop when a trusted proxy sets it
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
