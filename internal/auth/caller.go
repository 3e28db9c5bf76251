package auth

import "context"

// Caller identifies who invoked an operation.
// The zero value is an anonymous caller.
type Caller struct {
	// UID is the verified user identifier. Empty for anonymous callers.
	UID string
	// Trusted marks first-party service-to-service calls.
	Trusted bool
}

// Anonymous reports whether the caller carries no identity at all.
func (c Caller) Anonymous() bool {
	return c.UID == "" && !c.Trusted
}

type callerKey struct{}

// ContextWithCaller adds the caller to the context.
func ContextWithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext extracts the caller from the context.
// Returns an anonymous caller when none was set.
func CallerFromContext(ctx context.Context) Caller {
	if v, ok := ctx.Value(callerKey{}).(Caller); ok {
		return v
	}

	return Caller{}
}
