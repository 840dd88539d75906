package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// TrustedProxies decides whose X-Forwarded-For and X-Real-IP headers are
// believed. Loopback peers are always trusted; that covers the dashboard,
// which calls the API on this same process.
type TrustedProxies struct {
	nets []*net.IPNet
}

// ParseTrustedProxies accepts IP addresses and CIDR blocks.
func ParseTrustedProxies(entries []string) (*TrustedProxies, error) {
	t := &TrustedProxies{}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", entry)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			t.nets = append(t.nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		t.nets = append(t.nets, ipNet)
	}
	return t, nil
}

func (t *TrustedProxies) trusted(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if ip.IsLoopback() {
		return true
	}
	if t == nil {
		return false
	}
	for _, n := range t.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the address a request is attributed to. Forwarding headers
// count only when the peer is trusted, and X-Forwarded-For is walked from the
// right so a client cannot prepend its own entries.
func (t *TrustedProxies) ClientIP(r *http.Request) string {
	peer := remoteHost(r)
	if !t.trusted(net.ParseIP(peer)) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			ip := net.ParseIP(hop)
			if ip == nil {
				break
			}
			if !t.trusted(ip) || i == 0 {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return peer
}

// ForwardedFor is the X-Forwarded-For value to send when relaying r to another
// service: the received chain with this hop's peer appended.
func ForwardedFor(r *http.Request) string {
	peer := remoteHost(r)
	if prior := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); prior != "" {
		return prior + ", " + peer
	}
	return peer
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
