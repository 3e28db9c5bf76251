// Package blob stores media objects addressed by slash-separated paths.
package blob

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidRef = errors.New("invalid media reference")
)

// Store defines the operations the backend needs from object storage.
type Store interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
	// Delete returns ErrNotFound when no object exists at path.
	Delete(ctx context.Context, path string) error
}
