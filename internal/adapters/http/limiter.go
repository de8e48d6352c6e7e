package http

import (
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/bbkanego/seerbot/pkg/domain"
	"golang.org/x/time/rate"
)

// rateLimiter keeps one token bucket per client IP.
type rateLimiter struct {
	mu        sync.Mutex
	bucket    map[string]*rate.Limiter
	rate      rate.Limit
	burstSize int
}

func newRateLimiter(r rate.Limit, burst int) *rateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{bucket: make(map[string]*rate.Limiter), rate: r, burstSize: burst}
}

func (l *rateLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.bucket[ip]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burstSize)
		l.bucket[ip] = lim
	}
	return lim
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.limiter.limiterFor(ip).Allow() {
			s.logger.Warn("too many requests", "ip", ip)
			writeJSON(w, http.StatusTooManyRequests, &domain.ClientError{
				Code:    "too_many_requests",
				Message: "too many requests",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(HeaderAdminToken)
		if s.adminToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			s.writeError(w, r, fmt.Errorf("%w: admin token required", domain.ErrUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port that RemoteAddr carries unless RealIP already rewrote it.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
