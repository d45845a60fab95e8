package middleware

import (
	"context"
	"net"
	"net/http"
	"net/netip"
)

type contextKey string

const RealIPKey contextKey = "real-ip"

// Published at https://www.cloudflare.com/ips-v4 and ips-v6.
var cloudflarePrefixes = []string{
	"173.245.48.0/20",
	"103.21.244.0/22",
	"103.22.200.0/22",
	"103.31.4.0/22",
	"141.101.64.0/18",
	"108.162.192.0/18",
	"190.93.240.0/20",
	"188.114.96.0/20",
	"197.234.240.0/22",
	"198.41.128.0/17",
	"162.158.0.0/15",
	"104.16.0.0/13",
	"104.24.0.0/14",
	"172.64.0.0/13",
	"131.0.72.0/22",
	"2400:cb00::/32",
	"2606:4700::/32",
	"2803:f800::/32",
	"2405:b500::/32",
	"2405:8100::/32",
	"2a06:98c0::/29",
	"2c0f:f248::/32",
}

// RealIP resolves the client address used for rate limiting and logs.
// Behind Cloudflare the CF-Connecting-IP header names the client, and
// requireSource rejects anything that did not come through Cloudflare.
type RealIP struct {
	useHeaders    bool
	requireSource bool
	prefixes      []netip.Prefix
}

func NewRealIP(useHeaders, requireSource bool) (*RealIP, error) {
	m := &RealIP{
		useHeaders:    useHeaders,
		requireSource: requireSource,
		prefixes:      make([]netip.Prefix, 0, len(cloudflarePrefixes)),
	}
	for _, cidr := range cloudflarePrefixes {
		p, err := netip.ParsePrefix(cidr)
		if err != nil {
			return nil, err
		}
		m.prefixes = append(m.prefixes, p)
	}
	return m, nil
}

func (m *RealIP) fromCloudflare(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range m.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (m *RealIP) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remote := remoteHost(r)
		if m.requireSource {
			if addr, err := netip.ParseAddr(remote); err == nil && !m.fromCloudflare(addr) {
				http.Error(w, "Forbidden: Invalid request source", http.StatusForbidden)
				return
			}
		}

		ip := remote
		if m.useHeaders {
			if cf := r.Header.Get("CF-Connecting-IP"); cf != "" {
				ip = cf
			}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), RealIPKey, ip)))
	})
}

// GetRealIP is the address set by RealIP, or the peer address.
func GetRealIP(r *http.Request) string {
	if ip, ok := r.Context().Value(RealIPKey).(string); ok {
		return ip
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
