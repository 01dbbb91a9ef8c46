package syncache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/syncache/codec"
	gen "github.com/unkn0wn-root/syncache/genstore"
	pr "github.com/unkn0wn-root/syncache/provider"
)

// FetchFunc is the fetcher collaborator: it performs the real request
// (usually an HTTP GET) and returns the decoded payload.
type FetchFunc[V any] func(ctx context.Context) (V, error)

type SetCostFunc func(key string, raw []byte) int64

// Cache is a typed view over a Store. Several views with different V may share
// one Store; by convention a key is always read with the same V and TTL.
type Cache[V any] interface {
	// Get returns the value only if it was stored less than ttl ago.
	Get(ctx context.Context, key string, ttl time.Duration) (v V, ok bool, err error)
	// Set overwrites key unconditionally with storedAt = now.
	Set(ctx context.Context, key string, value V) error
	// Fetch is cachedFetch: a live entry is returned without calling fetch;
	// otherwise one fetch runs per key no matter how many callers are waiting,
	// and its result is cached. A failed fetch caches nothing.
	Fetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc[V]) (V, error)
	Invalidate(ctx context.Context, key string) error
	Store() *Store
}

// Options tune a Store. The zero value is usable: in-memory provider,
// in-process generations, no logging.
type Options struct {
	Provider pr.Provider  // nil => provider/memory
	GenStore gen.GenStore // nil => LocalGenStore (in-process)

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used

	// Retention is handed to the provider on every Set so abandoned entries
	// are eventually dropped. It is not a freshness window. 0 => 1h.
	Retention time.Duration

	CleanupInterval time.Duration // local gen store sweep; 0 => 10m
	GenRetention    time.Duration // local gen store retention; 0 => 24h

	ComputeSetCost SetCostFunc      // default 1
	Now            func() time.Time // clock; nil => time.Now
	Disabled       bool             // every read misses, writes are dropped
}

func NewStore(opts Options) (*Store, error) {
	return newStore(opts)
}

// New returns a typed view over s using codec to (de)serialize values.
func New[V any](s *Store, codec c.Codec[V]) (Cache[V], error) {
	return newCache[V](s, codec)
}
