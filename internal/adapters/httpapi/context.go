package httpapi

import "context"

type callerKey struct{}

// WithCaller stores a short, loggable fingerprint of the caller's key.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func CallerFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(callerKey{}).(string)
	return v, ok && v != ""
}
