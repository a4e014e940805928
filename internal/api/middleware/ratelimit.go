package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL  = 5 * time.Minute
	limiterSweepGap = time.Minute
)

// RateLimiter hands out one token bucket per client IP.
type RateLimiter struct {
	// TrustForwarded keys buckets on the first X-Forwarded-For hop. Only
	// enable it behind a proxy that sets the header; otherwise clients can
	// rotate it to get fresh buckets. The default keys on RemoteAddr.
	TrustForwarded bool

	rps    rate.Limit
	burst  int
	logger *zap.Logger

	mu       sync.Mutex
	limiters map[string]*ipLimiter
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows rps requests per second per IP with the given burst.
// rps <= 0 disables limiting. Call Close to stop the idle sweeper.
func NewRateLimiter(rps, burst int, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if burst <= 0 {
		burst = max(rps, 1)
	}
	rl := &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		logger:   logger,
		limiters: make(map[string]*ipLimiter),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if rps > 0 {
		go rl.sweepLoop()
	}
	return rl
}

// Middleware answers 429 once a client exhausts its bucket.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl == nil || rl.rps <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r, rl.TrustForwarded)
		if !rl.limiter(ip).Allow() {
			rl.logger.Warn("rate_limit_exceeded",
				zap.String("request_id", GetRequestID(r.Context())),
				zap.String("client_ip", ip),
			)
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastSeen = rl.now()
	return entry.limiter
}

// sweep drops buckets idle for longer than limiterIdleTTL.
func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for ip, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(rl.limiters, ip)
		}
	}
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(limiterSweepGap)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

// Close stops the sweeper. Safe to call more than once.
func (rl *RateLimiter) Close() {
	if rl == nil {
		return
	}
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// clientIP returns the RemoteAddr host, or the first X-Forwarded-For hop
// when trustForwarded is set and the header is present.
func clientIP(r *http.Request, trustForwarded bool) string {
	ip := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); trustForwarded && forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		ip = strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}
