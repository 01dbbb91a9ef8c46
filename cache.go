package syncache

import (
	"context"
	"errors"
	"time"

	c "github.com/unkn0wn-root/syncache/codec"
)

type cache[V any] struct {
	s     *Store
	codec c.Codec[V]
}

func newCache[V any](s *Store, codec c.Codec[V]) (*cache[V], error) {
	if s == nil {
		return nil, errors.New("syncache: store is required")
	}
	if codec == nil {
		return nil, errors.New("syncache: codec is required")
	}
	return &cache[V]{s: s, codec: codec}, nil
}

func (c *cache[V]) Store() *Store { return c.s }

func (c *cache[V]) Get(ctx context.Context, key string, ttl time.Duration) (V, bool, error) {
	var zero V
	raw, ok, err := c.s.Get(ctx, key, ttl)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := c.codec.Decode(raw)
	if err != nil {
		c.s.selfHeal(ctx, key, "value_decode")
		return zero, false, nil
	}
	return v, true, nil
}

func (c *cache[V]) Set(ctx context.Context, key string, value V) error {
	raw, err := c.codec.Encode(value)
	if err != nil {
		return err
	}
	return c.s.Set(ctx, key, raw)
}

func (c *cache[V]) Invalidate(ctx context.Context, key string) error {
	return c.s.Delete(ctx, key)
}

func (c *cache[V]) Fetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc[V]) (V, error) {
	var zero V
	if !c.s.enabled {
		v, err := fetch(ctx)
		if err != nil {
			return zero, fetchErr(key, err)
		}
		return v, nil
	}

	v, ok, err := c.Get(ctx, key, ttl)
	if err != nil {
		// provider trouble is a miss, not a reason to fail the read
		c.s.log.Warn("cache read error; fetching", Fields{"key": key, "err": err})
	}
	if ok {
		return v, nil
	}

	raw, err := c.s.fetchShared(ctx, key, func(fctx context.Context) ([]byte, error) {
		v, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		return c.codec.Encode(v)
	})
	if err != nil {
		if cerr := ctx.Err(); cerr != nil && errors.Is(err, cerr) {
			return zero, err
		}
		return zero, fetchErr(key, err)
	}
	return c.codec.Decode(raw)
}
