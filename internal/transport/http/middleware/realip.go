package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RealIP rewrites RemoteAddr to the originating client when the direct peer
// falls inside one of the trusted prefixes. X-Forwarded-For is read right to
// left and the first hop outside the trusted set wins; X-Real-Ip is the
// fallback. Any other peer keeps its socket address.
func RealIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip, ok := forwardedClient(r, trusted); ok {
				r.RemoteAddr = ip
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardedClient(r *http.Request, trusted []netip.Prefix) (string, bool) {
	peer, ok := parseIP(ClientIP(r))
	if !ok || !contains(trusted, peer) {
		return "", false
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		var leftmost netip.Addr
		for i := len(hops) - 1; i >= 0; i-- {
			addr, ok := parseIP(hops[i])
			if !ok {
				break
			}
			if !contains(trusted, addr) {
				return addr.String(), true
			}
			leftmost = addr
		}
		if leftmost.IsValid() {
			return leftmost.String(), true
		}
	}
	if addr, ok := parseIP(r.Header.Get("X-Real-Ip")); ok {
		return addr.String(), true
	}
	return "", false
}

func parseIP(s string) (netip.Addr, bool) {
	s = strings.TrimSpace(s)
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func contains(prefixes []netip.Prefix, addr netip.Addr) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
