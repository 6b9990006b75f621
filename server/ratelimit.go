package server

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// LoginLimiter throttles login attempts per client IP. A nil *LoginLimiter
// allows everything.
type LoginLimiter struct {
	rate  rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*clientLimiter
	lastScan time.Time
}

// NewLoginLimiter allows perMinute attempts per client per minute. Zero or a
// negative value disables limiting.
func NewLoginLimiter(perMinute int) *LoginLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &LoginLimiter{
		rate:     rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		limiters: make(map[string]*clientLimiter),
		lastScan: time.Now(),
	}
}

// Allow reports whether client may make another attempt now.
func (l *LoginLimiter) Allow(client string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastScan) > limiterIdleTTL {
		for key, cl := range l.limiters {
			if now.Sub(cl.lastAccess) > limiterIdleTTL {
				delete(l.limiters, key)
			}
		}
		l.lastScan = now
	}

	cl, ok := l.limiters[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[client] = cl
	}
	cl.lastAccess = now
	return cl.limiter.Allow()
}

// RateLimitMiddleware rejects clients that exceeded the login rate with 429.
func (s *Server) RateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)
		if !s.limiter.Allow(client) {
			s.metrics.RecordRateLimited()
			log.Warn().Str("client", client).Msg("login rate limit exceeded")
			writeRateLimitResponse(w, s.limiter.rate)
			return
		}
		next(w, r)
	}
}

func writeRateLimitResponse(w http.ResponseWriter, limit rate.Limit) {
	retryAfter := 1
	if limit > 0 {
		retryAfter = int(math.Ceil(1 / float64(limit)))
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             "rate_limited",
		"error_description": "too many login attempts",
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
