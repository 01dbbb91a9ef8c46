package syncache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	gen "github.com/unkn0wn-root/syncache/genstore"
	"github.com/unkn0wn-root/syncache/internal/keyindex"
	"github.com/unkn0wn-root/syncache/internal/wire"
	pr "github.com/unkn0wn-root/syncache/provider"
	"github.com/unkn0wn-root/syncache/provider/memory"
)

// Store is the TTL cache store shared by every feature of one application
// session. Construct it once and pass it to the typed caches, routers and
// controllers that need it.
type Store struct {
	provider pr.Provider
	gen      gen.GenStore
	log      Logger
	hooks    Hooks
	now      func() time.Time

	enabled        bool
	retention      time.Duration
	computeSetCost SetCostFunc

	index   *keyindex.Index
	flights singleflight.Group
	stats   counters
	closed  atomic.Bool
}

func newStore(opts Options) (*Store, error) {
	s := &Store{
		provider: opts.Provider,
		gen:      opts.GenStore,
		enabled:  !opts.Disabled,
		index:    keyindex.New(),
	}

	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	s.retention = coalesce[time.Duration](opts.Retention, defaultRetention)

	s.now = opts.Now
	if s.now == nil {
		s.now = time.Now
	}
	if opts.ComputeSetCost != nil {
		s.computeSetCost = opts.ComputeSetCost
	} else {
		s.computeSetCost = func(string, []byte) int64 { return 1 }
	}

	if s.provider == nil {
		s.provider = memory.NewWithClock(s.now)
	}
	if s.gen == nil {
		s.gen = gen.NewLocalGenStore(gen.LocalOptions{
			Sweep:     coalesce[time.Duration](opts.CleanupInterval, defaultSweep),
			Retention: coalesce[time.Duration](opts.GenRetention, defaultGenRetention),
			Now:       s.now,
		})
	}
	return s, nil
}

func (s *Store) Enabled() bool { return s.enabled }

// Stats returns a copy of the store's counters.
func (s *Store) Stats() Stats { return s.stats.snapshot() }

// Keys lists the keys written through this store that have not been deleted.
// Entries the provider evicted on its own may still be listed.
func (s *Store) Keys() []string { return s.index.Keys() }

func (s *Store) Len() int { return s.index.Len() }

// Has reports whether key was written through this store and not deleted since.
// It does not check freshness.
func (s *Store) Has(key string) bool { return s.index.Has(key) }

// Get returns the raw payload stored under key if it was written less than ttl
// ago. ttl <= 0 never hits. An expired entry is reported as a miss and left in
// place; it is overwritten by the next successful fetch.
func (s *Store) Get(ctx context.Context, key string, ttl time.Duration) ([]byte, bool, error) {
	if !s.enabled {
		return nil, false, nil
	}
	raw, ok, err := s.provider.Get(ctx, key)
	if err != nil || !ok {
		s.stats.misses.Add(1)
		return nil, false, err
	}
	e, err := wire.DecodeEntry(raw)
	if err != nil {
		s.selfHeal(ctx, key, "corrupt")
		s.stats.misses.Add(1)
		return nil, false, nil
	}
	if e.Gen != s.snapshotGen(ctx, key) {
		s.selfHeal(ctx, key, "gen_mismatch")
		s.stats.misses.Add(1)
		return nil, false, nil
	}
	if !s.fresh(e.StoredAt, ttl) {
		s.stats.misses.Add(1)
		return nil, false, nil
	}
	s.stats.hits.Add(1)
	return e.Payload, true, nil
}

// Set overwrites key unconditionally, stamping it with the current time.
func (s *Store) Set(ctx context.Context, key string, raw []byte) error {
	if !s.enabled {
		return nil
	}
	_, err := s.write(ctx, key, s.snapshotGen(ctx, key), raw)
	return err
}

// SetWithGen writes key only if its generation still equals observedGen.
// written=false with a nil error means the key was invalidated after the
// snapshot was taken and the value was dropped.
func (s *Store) SetWithGen(ctx context.Context, key string, raw []byte, observedGen uint64) (written bool, err error) {
	if !s.enabled {
		return false, nil
	}
	if s.snapshotGen(ctx, key) != observedGen {
		s.stats.staleWrites.Add(1)
		s.hooks.StaleWriteSkipped(key)
		s.log.Debug("SetWithGen skipped (gen mismatch)", Fields{"key": key, "obs": observedGen})
		return false, nil
	}
	return s.write(ctx, key, observedGen, raw)
}

// SnapshotGen returns the current generation of key.
func (s *Store) SnapshotGen(ctx context.Context, key string) uint64 {
	return s.snapshotGen(ctx, key)
}

// Delete removes one entry. Deleting a missing key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	if !s.enabled {
		return nil
	}
	newGen, bumpErr := s.gen.Bump(ctx, key)
	delErr := s.provider.Del(ctx, key)
	existed := s.index.Has(key)
	s.index.Remove(key)
	s.flights.Forget(key)

	if bumpErr != nil {
		s.hooks.GenBumpError(1, bumpErr)
		s.log.Error("gen bump error", Fields{"key": key, "err": bumpErr})
	}
	if delErr != nil {
		s.log.Warn("provider delete error", Fields{"key": key, "err": delErr})
	}
	if bumpErr != nil && delErr != nil {
		s.hooks.InvalidateOutage(key, bumpErr, delErr)
		return &InvalidateError{Key: key, BumpErr: bumpErr, DelErr: delErr}
	}
	if existed {
		s.stats.invalidated.Add(1)
	}
	s.log.Debug("invalidated key", Fields{"key": key, "newGen": newGen})
	return nil
}

// DeleteByPrefix removes every key starting with prefix and returns how many
// entries were removed. No match is not an error. Fetches in flight for
// matching keys keep running but their results will not be cached. Providers
// implementing provider.Scanner are also asked for matching keys other
// clients wrote.
func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	if !s.enabled {
		return 0, nil
	}
	stored, inflight := s.index.TakePrefix(prefix)
	if sc, ok := s.provider.(pr.Scanner); ok {
		more, err := sc.Keys(ctx, prefix)
		if err != nil {
			s.log.Warn("provider scan error; using local index only", Fields{"prefix": prefix, "err": err})
		}
		stored = union(stored, more)
	}
	keys := union(stored, inflight)
	if len(keys) == 0 {
		return 0, nil
	}

	bumpErr := s.gen.BumpMany(ctx, keys)
	if bumpErr != nil {
		s.hooks.GenBumpError(len(keys), bumpErr)
		s.log.Error("gen bump error", Fields{"prefix": prefix, "keys": len(keys), "err": bumpErr})
	}

	removed := 0
	var delErrs []error
	for _, k := range stored {
		if err := s.provider.Del(ctx, k); err != nil {
			delErrs = append(delErrs, err)
			continue
		}
		removed++
	}
	for _, k := range keys {
		s.flights.Forget(k)
	}
	s.stats.invalidated.Add(uint64(removed))

	delErr := errors.Join(delErrs...)
	if delErr != nil {
		s.log.Warn("provider delete error", Fields{"prefix": prefix, "failed": len(delErrs), "err": delErr})
	}
	if bumpErr != nil && delErr != nil {
		s.hooks.InvalidateOutage(prefix+"*", bumpErr, delErr)
		return removed, &InvalidateError{Key: prefix + "*", BumpErr: bumpErr, DelErr: delErr}
	}
	s.log.Debug("invalidated prefix", Fields{"prefix": prefix, "removed": removed, "inflight": len(inflight)})
	return removed, nil
}

// Clear removes every entry. Calling it twice is the same as calling it once.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.DeleteByPrefix(ctx, "")
	return err
}

// Close releases the generation store and the provider. Further use of the
// store is undefined.
func (s *Store) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	// best effort on gens, provider error wins
	if s.gen != nil {
		_ = s.gen.Close(ctx)
	}
	if s.provider != nil {
		return s.provider.Close(ctx)
	}
	return nil
}

// fetchShared runs load at most once per key among concurrent callers and
// caches its result unless the key was invalidated while load ran. Each
// caller stops waiting when its own ctx is done; load itself runs on a
// context detached from the first caller's cancellation.
func (s *Store) fetchShared(ctx context.Context, key string, load func(context.Context) ([]byte, error)) ([]byte, error) {
	fctx := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(key, func() (any, error) {
		s.index.Begin(key)
		defer s.index.End(key)

		obs := s.snapshotGen(fctx, key)
		s.stats.fetches.Add(1)
		raw, err := load(fctx)
		if err != nil {
			s.stats.fetchErrors.Add(1)
			s.hooks.FetchFailed(key, err)
			s.log.Debug("fetch failed", Fields{"key": key, "err": err})
			return nil, err
		}
		if _, err := s.SetWithGen(fctx, key, raw, obs); err != nil {
			// value is still good for the callers; only caching failed
			s.log.Warn("cache write failed", Fields{"key": key, "err": err})
		}
		return raw, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.stats.shared.Add(1)
			s.hooks.FetchShared(key)
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Store) write(ctx context.Context, key string, g uint64, raw []byte) (bool, error) {
	frame := wire.EncodeEntry(g, s.now().UnixNano(), raw)
	ok, err := s.provider.Set(ctx, key, frame, s.computeSetCost(key, frame), s.retention)
	if err != nil {
		return false, err
	}
	if !ok {
		s.hooks.ProviderSetRejected(key)
		s.log.Debug("Set rejected by provider (pressure)", Fields{"key": key})
		return false, nil
	}
	s.index.Add(key)
	return true, nil
}

func (s *Store) fresh(storedAt int64, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return s.now().Sub(time.Unix(0, storedAt)) < ttl
}

func (s *Store) selfHeal(ctx context.Context, key, reason string) {
	_ = s.provider.Del(ctx, key)
	s.index.Remove(key)
	s.stats.selfHeals.Add(1)
	s.hooks.SelfHeal(key, reason)
}

func (s *Store) snapshotGen(ctx context.Context, key string) uint64 {
	g, err := s.gen.Snapshot(ctx, key)
	if err != nil {
		// Conservative: treat as 0 so CAS writes will skip; reads will self-heal
		s.hooks.GenSnapshotError(1, err)
		s.log.Warn("gen snapshot error", Fields{"key": key, "err": err})
		return 0
	}
	return g
}

func union(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range [][]string{a, b} {
		for _, k := range s {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}
