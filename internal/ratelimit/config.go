package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// DefaultMessage is returned to throttled callers when a limit has no message of its own.
const DefaultMessage = "Too many requests, please try again later."

var ErrInvalidConfig = errors.New("invalid rate limit config")

// Config defines the limit applied to one protected operation.
type Config struct {
	// Window is the length of the counting window. Millisecond precision.
	Window time.Duration
	// MaxRequests is the number of accepted calls per window.
	MaxRequests int64
	// Message is returned on rejection.
	Message string
}

// ConfigFromMillis builds a Config from a window expressed in milliseconds.
func ConfigFromMillis(windowMs, maxRequests int64, message string) Config {
	return Config{
		Window:      time.Duration(windowMs) * time.Millisecond,
		MaxRequests: maxRequests,
		Message:     message,
	}
}

// Validate checks that the window and ceiling are usable.
func (c Config) Validate() error {
	if c.Window.Milliseconds() <= 0 {
		return fmt.Errorf("%w: window must be at least 1ms, got %s", ErrInvalidConfig, c.Window)
	}

	if c.MaxRequests <= 0 {
		return fmt.Errorf("%w: maxRequests must be positive, got %d", ErrInvalidConfig, c.MaxRequests)
	}

	return nil
}

func (c Config) withDefaults() Config {
	if c.Message == "" {
		c.Message = DefaultMessage
	}

	return c
}
