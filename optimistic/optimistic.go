// Package optimistic applies a proposed value to observable state before the
// server confirms it, then reconciles with the server's answer.
//
// Each Mutate call owns a request token. Only the newest token may write the
// final observable value; an older call that completes after a newer one was
// issued leaves observable state alone.
package optimistic

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/unkn0wn-root/syncache"
	"github.com/unkn0wn-root/syncache/internal/listeners"
)

var (
	// ErrRolledBack marks a failed mutation whose proposed value was reverted.
	ErrRolledBack = errors.New("optimistic: rolled back")
	// ErrSuperseded marks a mutation that completed after a newer one was
	// issued for the same key. Observable state was not touched.
	ErrSuperseded = errors.New("optimistic: superseded")
)

// CommitFunc is the mutation collaborator: it sends the proposed value to the
// server and returns what the server stored.
type CommitFunc[T any] func(ctx context.Context, proposed T) (T, error)

// MutationError is returned when the server call failed. It unwraps to the
// cause and to ErrRolledBack (or ErrSuperseded when a newer mutation owns
// observable state).
type MutationError struct {
	Key        string
	Superseded bool
	Err        error
}

func (e *MutationError) Error() string {
	if e.Superseded {
		return fmt.Sprintf("optimistic %q: superseded mutation failed: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("optimistic %q: rolled back: %v", e.Key, e.Err)
}

func (e *MutationError) Unwrap() []error {
	if e.Superseded {
		return []error{ErrSuperseded, e.Err}
	}
	return []error{ErrRolledBack, e.Err}
}

type Options struct {
	Key    string // names the state in logs and hooks
	Logger syncache.Logger
	Hooks  syncache.Hooks
}

// Controller holds one optimistically mutated value.
type Controller[T any] struct {
	key   string
	log   syncache.Logger
	hooks syncache.Hooks

	mu           sync.Mutex
	current      T
	confirmed    T
	latest       uint64 // newest issued token
	confirmedTok uint64 // token that produced confirmed
	pending      int
	// followConfirmed is set once the newest mutation rolled back; current
	// then tracks confirmed as older calls land.
	followConfirmed bool

	notifyMu sync.Mutex
	subs     *listeners.Set[T]
}

func New[T any](initial T, opts Options) *Controller[T] {
	c := &Controller[T]{
		key:       opts.Key,
		log:       opts.Logger,
		hooks:     opts.Hooks,
		current:   initial,
		confirmed: initial,
		subs:      listeners.New[T](),
	}
	if c.log == nil {
		c.log = syncache.NopLogger{}
	}
	if c.hooks == nil {
		c.hooks = syncache.NopHooks{}
	}
	return c
}

// Value is the observable value, which may be an unconfirmed proposal.
func (c *Controller[T]) Value() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Confirmed is the last value the server acknowledged.
func (c *Controller[T]) Confirmed() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirmed
}

// Pending reports whether any mutation is waiting for the server.
func (c *Controller[T]) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending > 0
}

// Subscribe registers fn for every observable change. The returned func
// unregisters it.
func (c *Controller[T]) Subscribe(fn func(T)) (cancel func()) {
	return c.subs.Add(fn)
}

// Reset replaces both observable and confirmed value with v, typically after
// a fresh server read. Mutations still in flight become superseded.
func (c *Controller[T]) Reset(v T) {
	c.mu.Lock()
	c.latest++
	c.current = v
	c.confirmed = v
	c.confirmedTok = c.latest
	c.followConfirmed = false
	c.mu.Unlock()
	c.publish()
}

// Mutate shows proposed immediately, calls commit, and then:
//   - on success sets the server's value (which wins over proposed);
//   - on failure restores the value observed when this call started, or the
//     last confirmed value if that snapshot was itself an unconfirmed proposal.
//
// If a newer Mutate or Reset was issued meanwhile, observable state is left to
// it and the result carries ErrSuperseded. The exception is a newer Mutate that
// already rolled back: a later older success then becomes the observable value.
// No retry is attempted.
func (c *Controller[T]) Mutate(ctx context.Context, proposed T, commit CommitFunc[T]) (T, error) {
	c.mu.Lock()
	c.latest++
	tok := c.latest
	prev := c.current
	prevConfirmed := c.pending == 0
	c.pending++
	c.followConfirmed = false
	c.current = proposed
	c.mu.Unlock()
	c.publish()

	server, err := commit(ctx, proposed)

	c.mu.Lock()
	c.pending--
	advanced := false
	if err == nil && tok > c.confirmedTok {
		c.confirmed = server
		c.confirmedTok = tok
		advanced = true
	}
	if tok != c.latest {
		if advanced && c.followConfirmed {
			c.current = c.confirmed
			c.mu.Unlock()
			c.publish()
			c.log.Debug("superseded mutation confirmed after rollback", syncache.Fields{"key": c.key, "token": tok})
			return server, ErrSuperseded
		}
		c.mu.Unlock()
		c.log.Debug("superseded mutation completed", syncache.Fields{"key": c.key, "token": tok, "err": err})
		if err != nil {
			return server, &MutationError{Key: c.key, Superseded: true, Err: err}
		}
		return server, ErrSuperseded
	}
	if err != nil {
		restored := prev
		if !prevConfirmed {
			restored = c.confirmed
		}
		c.current = restored
		c.followConfirmed = true
		c.mu.Unlock()
		c.publish()
		c.hooks.MutationRolledBack(c.key, err)
		c.log.Info("mutation rolled back", syncache.Fields{"key": c.key, "err": err})
		return restored, &MutationError{Key: c.key, Err: err}
	}
	c.current = server
	c.mu.Unlock()
	c.publish()
	return server, nil
}

// publish sends the current value to listeners. Serialized so listeners
// always end on the latest value even when mutations complete concurrently.
func (c *Controller[T]) publish() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.subs.Notify(c.Value())
}
