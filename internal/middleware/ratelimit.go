package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// RateLimiter allows at most maxRequests per client IP in a sliding window.
// The client IP is the host of RemoteAddr, which chi's RealIP middleware sets
// from trusted proxy headers earlier in the chain.
type RateLimiter struct {
	maxRequests int
	window      time.Duration
	now         func() time.Time

	mu        sync.Mutex
	requests  map[string][]time.Time
	nextSweep time.Time
}

func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		requests:    make(map[string][]time.Time),
	}
}

// allow records a request from ip and reports whether it fits the window.
// The second result is how long until the oldest request expires.
func (l *RateLimiter) allow(ip string) (bool, time.Duration) {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	if !now.Before(l.nextSweep) {
		l.sweep(cutoff)
		l.nextSweep = now.Add(l.window)
	}

	recent := l.requests[ip][:0]
	for _, ts := range l.requests[ip] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	if len(recent) >= l.maxRequests {
		l.requests[ip] = recent
		return false, recent[0].Sub(cutoff)
	}
	if len(recent) == 0 {
		recent = nil
	}
	l.requests[ip] = append(recent, now)
	return true, 0
}

// sweep drops clients with no request after cutoff.
func (l *RateLimiter) sweep(cutoff time.Time) {
	for ip, times := range l.requests {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(l.requests, ip)
		}
	}
}

func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)
		ok, retry := l.allow(ip)
		if !ok {
			log.WithFields(log.Fields{"remote": ip, "path": r.URL.Path}).Warn("rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func getClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
