package metadata

import (
	"context"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"pharmachain/pkg/requestcontext"
)

type contextKeyClient struct{}

// Client summarizes the User-Agent of a request.
type Client struct {
	UserAgent string
	Browser   string
	OS        string
	Mobile    bool
	Bot       bool
}

// Class buckets clients for logs and metrics: "bot", "mobile", "browser" or
// "api" for tools that do not identify as a browser.
func (c Client) Class() string {
	switch {
	case c.Bot:
		return "bot"
	case c.Mobile:
		return "mobile"
	case c.Browser != "" && c.OS != "":
		return "browser"
	default:
		return "api"
	}
}

// ParseClient classifies a raw User-Agent header.
func ParseClient(raw string) Client {
	if raw == "" {
		return Client{}
	}
	ua := useragent.New(raw)
	name, _ := ua.Browser()
	return Client{
		UserAgent: raw,
		Browser:   name,
		OS:        ua.OS(),
		Mobile:    ua.Mobile(),
		Bot:       ua.Bot(),
	}
}

// ClientMetadata extracts the client IP and User-Agent from the request
// and adds them to the context. Apply it early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientIP(r.Context(), ClientIPFromRequest(r))
		ctx = context.WithValue(ctx, contextKeyClient{}, ParseClient(r.Header.Get("User-Agent")))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClient retrieves the parsed User-Agent from the context.
func GetClient(ctx context.Context) Client {
	if c, ok := ctx.Value(contextKeyClient{}).(Client); ok {
		return c
	}
	return Client{}
}

// ClientIPFromRequest extracts the real client IP from the request, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" or "[::1]:port"
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}

	return "unknown"
}
