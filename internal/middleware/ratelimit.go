package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"
)

// RateLimitMiddleware provides basic rate limiting
type RateLimitMiddleware struct {
	requests  map[string][]int64 // IP -> timestamps
	lastSweep int64
	trusted   []netip.Prefix
	mu        sync.Mutex
}

// NewRateLimitMiddleware creates a new rate limiting middleware
func NewRateLimitMiddleware() *RateLimitMiddleware {
	return &RateLimitMiddleware{
		requests: make(map[string][]int64),
	}
}

// TrustProxies sets the reverse proxies whose X-Forwarded-For header is
// honoured. Entries are IPs or CIDR prefixes. Requests from any other peer
// are keyed on the socket address alone.
func (m *RateLimitMiddleware) TrustProxies(proxies []string) error {
	prefixes := make([]netip.Prefix, 0, len(proxies))
	for _, p := range proxies {
		if strings.Contains(p, "/") {
			prefix, err := netip.ParsePrefix(p)
			if err != nil {
				return fmt.Errorf("invalid trusted proxy %q: %w", p, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(p)
		if err != nil {
			return fmt.Errorf("invalid trusted proxy %q: %w", p, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}

	m.mu.Lock()
	m.trusted = prefixes
	m.mu.Unlock()
	return nil
}

// RateLimit applies a sliding-window limit per client IP.
func (m *RateLimitMiddleware) RateLimit(maxRequests int, windowSeconds int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.allow(m.clientIP(r), maxRequests, windowSeconds, time.Now().Unix()) {
				writeDetail(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *RateLimitMiddleware) allow(clientIP string, maxRequests, windowSeconds int, now int64) bool {
	windowStart := now - int64(windowSeconds)

	m.mu.Lock()
	defer m.mu.Unlock()

	if now-m.lastSweep >= int64(windowSeconds) {
		m.sweep(windowStart)
		m.lastSweep = now
	}

	valid := prune(m.requests[clientIP], windowStart)
	if len(valid) >= maxRequests {
		m.requests[clientIP] = valid
		return false
	}

	m.requests[clientIP] = append(valid, now)
	return true
}

// sweep drops clients with no request inside the window. Callers hold mu.
func (m *RateLimitMiddleware) sweep(windowStart int64) {
	for ip, timestamps := range m.requests {
		valid := prune(timestamps, windowStart)
		if len(valid) == 0 {
			delete(m.requests, ip)
			continue
		}
		m.requests[ip] = valid
	}
}

func prune(timestamps []int64, windowStart int64) []int64 {
	valid := timestamps[:0]
	for _, ts := range timestamps {
		if ts > windowStart {
			valid = append(valid, ts)
		}
	}
	return valid
}

// clientIP keys the request on its socket peer. When the peer is a trusted
// proxy, the rightmost untrusted X-Forwarded-For hop is used instead.
func (m *RateLimitMiddleware) clientIP(r *http.Request) string {
	peer := remoteIP(r.RemoteAddr)

	m.mu.Lock()
	trusted := m.trusted
	m.mu.Unlock()

	if len(trusted) == 0 || !isTrusted(peer, trusted) {
		return peer
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !isTrusted(hop, trusted) {
			return hop
		}
	}
	return peer
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// remoteIP strips the port from a RemoteAddr value.
func remoteIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
