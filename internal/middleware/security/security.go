// Package security holds the guards in front of the bot's HTTP endpoints.
package security

import (
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// SecretTokenHeader is the header Telegram fills with the webhook secret.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// IPExtractor resolves the client address, trusting forwarded headers only
// when the direct peer is a known proxy.
type IPExtractor struct {
	trustedProxies []*net.IPNet
}

// NewIPExtractor trusts loopback and private networks plus any extra CIDRs.
func NewIPExtractor(extra ...string) (*IPExtractor, error) {
	e := &IPExtractor{}
	for _, cidr := range append([]string{"127.0.0.0/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "::1/128"}, extra...) {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %s: %w", cidr, err)
		}
		e.trustedProxies = append(e.trustedProxies, network)
	}
	return e, nil
}

// ClientIP extracts the real client IP, validating forwarded headers.
func (e *IPExtractor) ClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}
	parsed := net.ParseIP(directIP)
	if parsed == nil || !e.isTrustedProxy(parsed) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

func (e *IPExtractor) isTrustedProxy(ip net.IP) bool {
	for _, network := range e.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// RequireSecretToken rejects requests whose secret header does not match.
// An empty secret disables the check.
func RequireSecretToken(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" {
				got := r.Header.Get(SecretTokenHeader)
				if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Headers sets the response headers every endpoint should carry.
func Headers(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Cache-Control", "no-store")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
