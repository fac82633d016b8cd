// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets the values; handlers read them and pass them to the
// registry as explicit arguments. The registry itself never reads the caller
// from a context.
//
//	ctx = requestcontext.WithCaller(ctx, addr)
//	caller, ok := requestcontext.Caller(ctx)
package requestcontext

import (
	"context"

	"pharmachain/pkg/domain"
)

type (
	callerKey    struct{}
	requestIDKey struct{}
	clientIPKey  struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyCaller    = callerKey{}
	ContextKeyRequestID = requestIDKey{}
	ContextKeyClientIP  = clientIPKey{}
)

// Caller retrieves the authenticated caller address. ok is false when the
// request was not authenticated.
func Caller(ctx context.Context) (domain.Address, bool) {
	addr, ok := ctx.Value(ContextKeyCaller).(domain.Address)
	if !ok || addr == "" {
		return "", false
	}
	return addr, true
}

// WithCaller injects the authenticated caller address.
func WithCaller(ctx context.Context, addr domain.Address) context.Context {
	return context.WithValue(ctx, ContextKeyCaller, addr)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// WithClientIP injects the client IP address.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ContextKeyClientIP, ip)
}
