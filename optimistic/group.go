package optimistic

import (
	"context"
	"fmt"
	"sync"
)

// Group keeps one Controller per key, e.g. the watched flag of every symbol.
// Controllers are created on first use from the initial func.
type Group[K comparable, T any] struct {
	mu      sync.Mutex
	m       map[K]*Controller[T]
	initial func(K) T
	opts    Options
}

// NewGroup builds a group. opts.Key is used as a prefix: the controller for
// key k is named "<opts.Key>:<k>".
func NewGroup[K comparable, T any](initial func(K) T, opts Options) *Group[K, T] {
	return &Group[K, T]{m: make(map[K]*Controller[T]), initial: initial, opts: opts}
}

func (g *Group[K, T]) Get(k K) *Controller[T] {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.m[k]
	if !ok {
		var v T
		if g.initial != nil {
			v = g.initial(k)
		}
		o := g.opts
		if o.Key == "" {
			o.Key = fmt.Sprint(k)
		} else {
			o.Key = fmt.Sprintf("%s:%v", o.Key, k)
		}
		c = New(v, o)
		g.m[k] = c
	}
	return c
}

func (g *Group[K, T]) Value(k K) T { return g.Get(k).Value() }

func (g *Group[K, T]) Mutate(ctx context.Context, k K, proposed T, commit CommitFunc[T]) (T, error) {
	return g.Get(k).Mutate(ctx, proposed, commit)
}

// Reset seeds k with a server-confirmed value.
func (g *Group[K, T]) Reset(k K, v T) { g.Get(k).Reset(v) }

// Forget drops the controller for k. Existing subscriptions stay attached to
// the dropped controller.
func (g *Group[K, T]) Forget(k K) {
	g.mu.Lock()
	delete(g.m, k)
	g.mu.Unlock()
}

func (g *Group[K, T]) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.m)
}
