package callerctx

import (
	"context"
	"strings"
)

// Caller identifies the authenticated user making a request.
type Caller struct {
	Login string
	Admin bool
}

type callerKey struct{}

// WithCaller stores the caller identity on the context.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	caller.Login = strings.TrimSpace(caller.Login)
	return context.WithValue(ctx, callerKey{}, caller)
}

// FromContext returns the caller identity, if present.
func FromContext(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return Caller{}, false
	}
	caller, ok := ctx.Value(callerKey{}).(Caller)
	if !ok || caller.Login == "" {
		return Caller{}, false
	}
	return caller, true
}
