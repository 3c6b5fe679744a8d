package core

import "context"

type contextKey string

const (
	ctxKeyIPAddress contextKey = "audit_ip"
	ctxKeyUserAgent contextKey = "audit_ua"
)

// ContextWithClient records the caller's IP and User-Agent for audit entries.
func ContextWithClient(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyIPAddress, ip)
	return context.WithValue(ctx, ctxKeyUserAgent, userAgent)
}

// IPAddressFromContext returns the IP set by ContextWithClient.
func IPAddressFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyIPAddress).(string)
	return v
}

// UserAgentFromContext returns the User-Agent set by ContextWithClient.
func UserAgentFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyUserAgent).(string)
	return v
}
