package ratelimit

import (
	"fmt"

	"github.com/spf13/viper"
)

// policyFile is the on-disk shape of a rate limit policy:
//
//	operations:
//	  - name: createStory
//	    windowMs: 60000
//	    maxRequests: 10
//	    message: Slow down.
//
// Operations are a list because viper lowercases map keys.
type policyFile struct {
	Operations []struct {
		Name        string `mapstructure:"name"`
		WindowMs    int64  `mapstructure:"windowMs"`
		MaxRequests int64  `mapstructure:"maxRequests"`
		Message     string `mapstructure:"message"`
	} `mapstructure:"operations"`
}

// LoadPolicyFile reads a YAML policy from path and layers it over base.
// Entries in the file replace the base limit of the same operation.
func LoadPolicyFile(path string, base *Policy) (*Policy, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read policy file %s: %w", path, err)
	}

	var file policyFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("decode policy file %s: %w", path, err)
	}

	builder := NewPolicyBuilder().Merge(base)

	for i, op := range file.Operations {
		if op.Name == "" {
			return nil, fmt.Errorf("%w: policy file %s: operation %d has no name", ErrInvalidConfig, path, i)
		}

		cfg := ConfigFromMillis(op.WindowMs, op.MaxRequests, op.Message)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("policy file %s: operation %q: %w", path, op.Name, err)
		}

		builder.AddConfig(op.Name, cfg)
	}

	return builder.Build(), nil
}
