package ratelimit

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/serroba/ollo/internal/auth"
)

// Policy maps protected operations to their limits.
type Policy struct {
	Limits map[string]Config
}

// Operations returns the configured operation names in sorted order.
func (p *Policy) Operations() []string {
	return slices.Sorted(maps.Keys(p.Limits))
}

// PolicyBuilder assembles a Policy.
type PolicyBuilder struct {
	limits map[string]Config
}

// NewPolicyBuilder creates an empty builder.
func NewPolicyBuilder() *PolicyBuilder {
	return &PolicyBuilder{limits: make(map[string]Config)}
}

// AddLimit sets the limit for operation with the default rejection message.
func (b *PolicyBuilder) AddLimit(operation string, maxRequests int64, window time.Duration) *PolicyBuilder {
	return b.AddConfig(operation, Config{Window: window, MaxRequests: maxRequests})
}

// AddConfig sets the limit for operation, replacing any previous one.
func (b *PolicyBuilder) AddConfig(operation string, cfg Config) *PolicyBuilder {
	b.limits[operation] = cfg

	return b
}

// Merge copies every limit of policy into the builder, overriding existing entries.
func (b *PolicyBuilder) Merge(policy *Policy) *PolicyBuilder {
	if policy != nil {
		maps.Copy(b.limits, policy.Limits)
	}

	return b
}

func (b *PolicyBuilder) Build() *Policy {
	return &Policy{Limits: maps.Clone(b.limits)}
}

// PolicyLimiter holds one Limiter per configured operation over a shared store.
type PolicyLimiter struct {
	limiters map[string]*Limiter
}

// NewPolicyLimiter validates every limit in policy and builds the per-operation limiters.
func NewPolicyLimiter(store Store, policy *Policy, opts ...Option) (*PolicyLimiter, error) {
	limiters := make(map[string]*Limiter, len(policy.Limits))

	for _, operation := range policy.Operations() {
		limiter, err := NewLimiter(store, operation, policy.Limits[operation], opts...)
		if err != nil {
			return nil, err
		}

		limiters[operation] = limiter
	}

	return &PolicyLimiter{limiters: limiters}, nil
}

// Allow checks caller against the limit configured for operation.
func (p *PolicyLimiter) Allow(ctx context.Context, operation string, caller auth.Caller) (*Decision, error) {
	limiter, ok := p.limiters[operation]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, operation)
	}

	return limiter.Allow(ctx, caller)
}

// Limiter returns the limiter for operation, if one is configured.
func (p *PolicyLimiter) Limiter(operation string) (*Limiter, bool) {
	l, ok := p.limiters[operation]

	return l, ok
}
