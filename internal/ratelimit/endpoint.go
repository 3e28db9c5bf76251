package ratelimit

import "github.com/danielgtaylor/huma/v2"

// MetadataKey is the key used to store rate limit config in operation metadata.
const MetadataKey = "rateLimit"

// EndpointConfig binds a Huma operation to a protected operation of the policy.
// Attach it via the operation's Metadata field.
type EndpointConfig struct {
	// Operation names the policy entry counted for this endpoint. Several endpoints
	// may share one operation and therefore one counter per caller.
	Operation string

	// Disabled skips rate limiting entirely for this endpoint.
	Disabled bool
}

// Metadata returns operation metadata carrying cfg.
func Metadata(cfg EndpointConfig) map[string]any {
	return map[string]any{MetadataKey: cfg}
}

// GetEndpointConfig extracts the EndpointConfig from operation metadata, if present.
func GetEndpointConfig(ctx huma.Context) *EndpointConfig {
	op := ctx.Operation()
	if op == nil || op.Metadata == nil {
		return nil
	}

	cfg, ok := op.Metadata[MetadataKey].(EndpointConfig)
	if !ok {
		return nil
	}

	return &cfg
}
