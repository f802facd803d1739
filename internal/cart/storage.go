package cart

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Storage.Read when no cart exists for the key.
var ErrNotFound = errors.New("cart storage: key not found")

// Storage is the durable key-value port the local cart store persists through.
// Keys are device identifiers; payloads are opaque bytes owned by LocalStore.
// Implementations must tolerate absent keys by returning ErrNotFound.
type Storage interface {
	Read(ctx context.Context, deviceID string) ([]byte, error)
	Write(ctx context.Context, deviceID string, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, deviceID string) error
}
