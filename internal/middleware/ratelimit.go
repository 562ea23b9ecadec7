package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const claimPathPrefix = "/api/v1/claim"

type clientLimiter struct {
	general  *rate.Limiter
	claim    *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware throttles each client IP. Claim submissions use their
// own, stricter bucket since each one costs a Discord API call.
type RateLimitMiddleware struct {
	generalRPM int
	claimRPM   int
	mu         sync.Mutex
	clients    map[string]*clientLimiter
}

// NewRateLimitMiddleware treats generalRPM <= 0 as unlimited. claimRPM <= 0
// falls back to 10.
func NewRateLimitMiddleware(generalRPM int, claimRPM int) *RateLimitMiddleware {
	if claimRPM <= 0 {
		claimRPM = 10
	}

	return &RateLimitMiddleware{
		generalRPM: generalRPM,
		claimRPM:   claimRPM,
		clients:    map[string]*clientLimiter{},
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := ClientIP(r)
		if clientIP == "" {
			clientIP = "unknown"
		}
		limiter := m.getLimiter(clientIP)

		target := limiter.general
		if strings.HasPrefix(strings.ToLower(r.URL.Path), claimPathPrefix) {
			target = limiter.claim
		}

		if !target.Allow() {
			w.Header().Set("Retry-After", "60")
			writeJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "リクエストが多すぎます。しばらく時間をおいて再度お試しください。")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) getLimiter(clientIP string) *clientLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limiter, exists := m.clients[clientIP]; exists {
		limiter.lastSeen = time.Now()
		m.gcLocked()
		return limiter
	}

	created := &clientLimiter{
		general:  newLimiter(m.generalRPM),
		claim:    newLimiter(m.claimRPM),
		lastSeen: time.Now(),
	}
	m.clients[clientIP] = created
	m.gcLocked()

	return created
}

func newLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}

	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)
}

func (m *RateLimitMiddleware) gcLocked() {
	if len(m.clients) < 1000 {
		return
	}

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, limiter := range m.clients {
		if limiter.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
		}
	}
}
