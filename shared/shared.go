// Package shared holds one server-derived value read by many observers, such
// as the feature-flag set. All readers share a single load, and every
// confirmed change is pushed to registered listeners.
package shared

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/syncache"
	"github.com/unkn0wn-root/syncache/internal/listeners"
)

var (
	ErrNoLoader = errors.New("shared: Load is required")
	ErrReadOnly = errors.New("shared: no Save configured")
)

// LoadFunc reads the value from the server.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// SaveFunc writes proposed and returns what the server stored.
type SaveFunc[T any] func(ctx context.Context, proposed T) (T, error)

type Options[T any] struct {
	Name    string // used in logs and errors
	Default T      // exposed until the first successful load
	Load    LoadFunc[T]
	Save    SaveFunc[T]
	Logger  syncache.Logger
}

// Singleton is safe for concurrent use.
type Singleton[T any] struct {
	name string
	def  T
	load LoadFunc[T]
	save SaveFunc[T]
	log  syncache.Logger

	mu     sync.Mutex
	value  T
	loaded bool
	gen    uint64 // bumped by Mutate and Invalidate

	flights  singleflight.Group
	notifyMu sync.Mutex
	subs     *listeners.Set[T]
}

func New[T any](opts Options[T]) (*Singleton[T], error) {
	if opts.Load == nil {
		return nil, ErrNoLoader
	}
	s := &Singleton[T]{
		name:  opts.Name,
		def:   opts.Default,
		load:  opts.Load,
		save:  opts.Save,
		log:   opts.Logger,
		value: opts.Default,
		subs:  listeners.New[T](),
	}
	if s.name == "" {
		s.name = "singleton"
	}
	if s.log == nil {
		s.log = syncache.NopLogger{}
	}
	return s, nil
}

// Fetch returns the cached value, or joins the load already in flight, or
// starts one. On failure it returns the default together with the error and
// caches nothing, so the next call retries.
func (s *Singleton[T]) Fetch(ctx context.Context) (T, error) {
	s.mu.Lock()
	if s.loaded {
		v := s.value
		s.mu.Unlock()
		return v, nil
	}
	g := s.gen
	s.mu.Unlock()

	lctx := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(flightKey(g), func() (any, error) {
		s.mu.Lock()
		if s.loaded {
			v := s.value
			s.mu.Unlock()
			return v, nil
		}
		s.mu.Unlock()

		v, err := s.load(lctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != g {
			// Mutate or Invalidate ran meanwhile; this result is older than
			// what they established.
			s.log.Debug("discarding stale load", syncache.Fields{"name": s.name})
			if s.loaded {
				return s.value, nil
			}
			return v, nil
		}
		s.value = v
		s.loaded = true
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			s.log.Warn("load failed; serving default", syncache.Fields{"name": s.name, "err": res.Err})
			return s.def, fmt.Errorf("shared %s: load: %w", s.name, res.Err)
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return s.def, ctx.Err()
	}
}

// Mutate applies patch to the current value, saves the result and, once the
// server confirms, replaces the cached value and notifies every listener
// before returning. A failed save changes nothing.
func (s *Singleton[T]) Mutate(ctx context.Context, patch func(T) T) (T, error) {
	cur, _ := s.Peek()
	if s.save == nil {
		return cur, ErrReadOnly
	}
	v, err := s.save(ctx, patch(cur))
	if err != nil {
		s.log.Info("mutation failed", syncache.Fields{"name": s.name, "err": err})
		return cur, fmt.Errorf("shared %s: save: %w", s.name, err)
	}

	s.mu.Lock()
	s.value = v
	s.loaded = true
	old := s.gen
	s.gen++
	s.mu.Unlock()
	s.flights.Forget(flightKey(old))

	s.publish()
	return v, nil
}

// Invalidate drops the cached value. Readers see the default until the next
// load completes; a load already running will not repopulate it.
func (s *Singleton[T]) Invalidate() {
	s.mu.Lock()
	s.value = s.def
	s.loaded = false
	old := s.gen
	s.gen++
	s.mu.Unlock()
	s.flights.Forget(flightKey(old))
}

// Peek returns the exposed value without loading. ok is false while only the
// default is available.
func (s *Singleton[T]) Peek() (v T, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.loaded
}

// Subscribe registers fn for confirmed changes. Call the returned func when
// the observer goes away.
func (s *Singleton[T]) Subscribe(fn func(T)) (cancel func()) {
	return s.subs.Add(fn)
}

func (s *Singleton[T]) Listeners() int { return s.subs.Len() }

func (s *Singleton[T]) publish() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	v, _ := s.Peek()
	s.subs.Notify(v)
}

func flightKey(gen uint64) string { return strconv.FormatUint(gen, 10) }
