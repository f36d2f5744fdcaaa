package clientip

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// DefaultHeaders are consulted when no trusted headers are configured.
var DefaultHeaders = []string{"X-Forwarded-For", "X-Real-IP"}

// Config lists the proxy headers trusted to carry the caller's address.
type Config struct {
	TrustedHeaders []string `env:"INGRESS_TRUSTED_IP_HEADERS" envSeparator:"," envDefault:"X-Forwarded-For,X-Real-IP"`
}

// Resolver extracts the caller's address from trusted proxy headers, then
// from RemoteAddr.
type Resolver struct {
	headers []string
}

// New creates a Resolver checking headers in order. With no headers it uses
// DefaultHeaders; pass an explicit empty header list via NewFromConfig to
// trust only RemoteAddr.
func New(headers ...string) *Resolver {
	if len(headers) == 0 {
		headers = DefaultHeaders
	}
	return &Resolver{headers: headers}
}

// NewFromConfig creates a Resolver from cfg.
func NewFromConfig(cfg Config) *Resolver {
	headers := make([]string, 0, len(cfg.TrustedHeaders))
	for _, h := range cfg.TrustedHeaders {
		if h = strings.TrimSpace(h); h != "" {
			headers = append(headers, h)
		}
	}
	return &Resolver{headers: headers}
}

// IP returns the normalized caller address or "" when none is valid.
// For list headers such as X-Forwarded-For the first valid entry wins.
func (res *Resolver) IP(r *http.Request) string {
	for _, h := range res.headers {
		for candidate := range strings.SplitSeq(r.Header.Get(h), ",") {
			if ip := parseIP(candidate); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

// Key is a rate limiter key function: "ip:<addr>".
func (res *Resolver) Key(r *http.Request) string {
	if ip := FromContext(r.Context()); ip != "" {
		return "ip:" + ip
	}
	return "ip:" + res.IP(r)
}

// Middleware stores the resolved address in the request context.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), res.IP(r))))
	})
}

func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return ""
	}
	return addr.Unmap().WithZone("").String()
}

type contextKey struct{}

// WithContext stores ip in ctx.
func WithContext(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKey{}, ip)
}

// FromContext returns the address stored by Middleware, or "".
func FromContext(ctx context.Context) string {
	ip, _ := ctx.Value(contextKey{}).(string)
	return ip
}
