// Package invalidate maps business events to cache evictions. A feature that
// writes data publishes a Topic after the server accepted the write; every
// key or prefix registered for that topic is removed from the Store so the
// next read refetches.
package invalidate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/unkn0wn-root/syncache"
)

// ErrUnroutedFamily is returned by Check for a key family no topic reaches.
var ErrUnroutedFamily = errors.New("invalidate: no topic invalidates family")

// Topic names a business event, e.g. "idea-created".
type Topic string

func (t Topic) String() string { return string(t) }

// Target is one eviction: a single key or every key under a prefix.
type Target struct {
	value  string
	prefix bool
}

func Exact(key string) Target { return Target{value: key} }

func Prefix(p string) Target { return Target{value: p, prefix: true} }

// Family targets every key of f, the bare family key included.
func Family(f syncache.Family) []Target {
	return []Target{Exact(f.Name), Prefix(f.Prefix())}
}

func (t Target) String() string {
	if t.prefix {
		return t.value + "*"
	}
	return t.value
}

// reaches reports whether publishing t routes family f: an exact target on
// the bare family key, or a prefix covering every parameterized key. A target
// on one parameterized key, such as ohlcv:AAPL:1d, does not count.
func (t Target) reaches(f syncache.Family) bool {
	if !t.prefix {
		return t.value == f.Name
	}
	return strings.HasPrefix(f.Prefix(), t.value)
}

type Options struct {
	Logger syncache.Logger
	Hooks  syncache.Hooks
}

// Report summarizes one Publish.
type Report struct {
	Removed  int
	ByTopic  map[Topic]int
	Unrouted []Topic // published topics with no registered targets
}

// Router is safe for concurrent use. Register routes at startup.
type Router struct {
	store *syncache.Store
	log   syncache.Logger
	hooks syncache.Hooks

	mu     sync.RWMutex
	routes map[Topic][]Target
}

func NewRouter(store *syncache.Store, opts Options) *Router {
	r := &Router{
		store:  store,
		log:    opts.Logger,
		hooks:  opts.Hooks,
		routes: make(map[Topic][]Target),
	}
	if r.log == nil {
		r.log = syncache.NopLogger{}
	}
	if r.hooks == nil {
		r.hooks = syncache.NopHooks{}
	}
	return r
}

// Register adds targets to topic. Registering the same topic again appends.
func (r *Router) Register(topic Topic, targets ...Target) *Router {
	r.mu.Lock()
	r.routes[topic] = append(r.routes[topic], targets...)
	r.mu.Unlock()
	return r
}

// Targets returns a copy of what topic evicts.
func (r *Router) Targets(topic Topic) []Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Target(nil), r.routes[topic]...)
}

func (r *Router) Topics() []Topic {
	r.mu.RLock()
	out := make([]Topic, 0, len(r.routes))
	for t := range r.routes {
		out = append(out, t)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Publish evicts every target of every topic. Call it only after the write
// that caused the event has succeeded. Publishing a topic with no routes is
// logged and reported, not an error. The returned error is non-nil only when
// the store could not guarantee an eviction (see syncache.InvalidateError).
func (r *Router) Publish(ctx context.Context, topics ...Topic) (Report, error) {
	rep := Report{ByTopic: make(map[Topic]int, len(topics))}
	var errs []error

	for _, topic := range topics {
		targets := r.Targets(topic)
		if len(targets) == 0 {
			rep.Unrouted = append(rep.Unrouted, topic)
			r.log.Warn("published topic has no routes", syncache.Fields{"topic": topic.String()})
			continue
		}
		removed := 0
		for _, t := range targets {
			n, err := r.evict(ctx, t)
			removed += n
			if err != nil {
				errs = append(errs, fmt.Errorf("topic %s: %w", topic, err))
			}
		}
		rep.ByTopic[topic] += removed
		rep.Removed += removed
		r.hooks.Invalidated(topic.String(), removed)
		r.log.Debug("topic published", syncache.Fields{"topic": topic.String(), "removed": removed})
	}
	return rep, errors.Join(errs...)
}

func (r *Router) evict(ctx context.Context, t Target) (int, error) {
	if t.prefix {
		return r.store.DeleteByPrefix(ctx, t.value)
	}
	existed := r.store.Has(t.value)
	if err := r.store.Delete(ctx, t.value); err != nil {
		return 0, err
	}
	if existed {
		return 1, nil
	}
	return 0, nil
}

// Check returns an error naming every family that no registered topic can
// evict. Run it once after all routes are registered.
func (r *Router) Check(families ...syncache.Family) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, f := range families {
		if !r.reached(f) {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnroutedFamily, f))
		}
	}
	return errors.Join(errs...)
}

func (r *Router) reached(f syncache.Family) bool {
	for _, targets := range r.routes {
		for _, t := range targets {
			if t.reaches(f) {
				return true
			}
		}
	}
	return false
}
