// Package genstore holds per-key generation counters. A store bumps a key's
// generation whenever the key is invalidated; a fetch that observed an older
// generation is then not allowed to write its result back.
package genstore

import (
	"context"
	"time"
)

// GenStore abstracts where generations live.
// Use LocalGenStore (default) for in-process gens, or RedisGenStore to share
// them with sidecar processes using the same Redis provider.
type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(ctx context.Context, key string) (uint64, error)
	// SnapshotMany returns gens for many keys; missing => 0.
	SnapshotMany(ctx context.Context, keys []string) (map[string]uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, key string) (uint64, error)
	// BumpMany increments every key in one pass (prefix and full invalidation).
	BumpMany(ctx context.Context, keys []string) error
	// Cleanup prunes old metadata if applicable (no-op for Redis).
	Cleanup(retention time.Duration)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
