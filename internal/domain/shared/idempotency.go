package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers request keys so a retried command is not applied twice
type IdempotencyStore interface {
	// MarkProcessed records the key with a TTL.
	// Returns true if the key was newly recorded, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// IsProcessed checks whether the key is currently recorded
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Forget removes a key so the command may be retried (used when the command itself failed)
	Forget(ctx context.Context, key string) error
	// Close releases resources
	Close() error
}
