package metadata

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

type contextKeyClient struct{}

// Client describes the caller of an admin request.
type Client struct {
	IP        string
	UserAgent string
	Agent     string
}

// LogAttrs returns the fields admin handlers attach to their log lines.
func (c Client) LogAttrs() []any {
	return []any{"client_ip", c.IP, "user_agent", c.Agent}
}

// ClientMetadata records the caller's address and a short agent label on
// the request context.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("User-Agent")
		c := Client{
			IP:        ClientIPFromRequest(r),
			UserAgent: raw,
			Agent:     AgentLabel(raw),
		}
		next.ServeHTTP(w, r.WithContext(WithClient(r.Context(), c)))
	})
}

// WithClient stores c on ctx.
func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, contextKeyClient{}, c)
}

// FromContext returns the caller recorded by ClientMetadata.
func FromContext(ctx context.Context) Client {
	c, _ := ctx.Value(contextKeyClient{}).(Client)
	return c
}

// AgentLabel condenses a User-Agent header into "browser/os", "bot:name"
// or the raw product token for tools such as curl.
func AgentLabel(raw string) string {
	if raw == "" {
		return "unknown"
	}
	ua := useragent.New(raw)
	name, _ := ua.Browser()
	if ua.Bot() {
		return "bot:" + name
	}
	if os := ua.OS(); os != "" {
		return name + "/" + os
	}
	if name != "" {
		return name
	}
	product, _, _ := strings.Cut(raw, " ")
	return product
}

// ClientIPFromRequest prefers the first X-Forwarded-For hop, then
// X-Real-IP, then the connection address.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
