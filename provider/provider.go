// Package provider defines the byte storage used by a syncache Store.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key (no prepended/appended
// metadata, no re-encoding, no mutation). If a store performs internal transforms
// (e.g., compression), they MUST be fully reversed.
//
// Freshness is not the provider's job. The store frames every value with the
// time it was written and decides on read whether the caller's TTL still holds.
// The ttl passed to Set is only a retention bound so abandoned entries do not
// live forever.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with retention TTLs.
// Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given retention. ttl <= 0 means no expiry.
	// May ignore cost if unsupported.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort). Missing keys are not an error.
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// Scanner is implemented by providers shared between processes, where keys
// written by another client are not in this store's own index. DeleteByPrefix
// also evicts what Keys returns.
type Scanner interface {
	// Keys lists stored keys starting with prefix, without any provider-side
	// namespace. An empty prefix lists everything.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
