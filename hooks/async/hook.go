// Package asynchook moves hook calls off the hot path onto a bounded queue.
// Events are dropped when the queue is full.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{SelfHealEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	store, _ := syncache.NewStore(syncache.Options{Hooks: hooks})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/syncache"
)

type Hooks struct {
	inner   syncache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ syncache.Hooks = (*Hooks)(nil)

func New(inner syncache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events after Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded because the queue was full
// or the hooks were closed.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) SelfHeal(k, r string)           { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) ProviderSetRejected(k string)   { h.try(func() { h.inner.ProviderSetRejected(k) }) }
func (h *Hooks) GenSnapshotError(n int, e error) { h.try(func() { h.inner.GenSnapshotError(n, e) }) }
func (h *Hooks) GenBumpError(n int, e error)    { h.try(func() { h.inner.GenBumpError(n, e) }) }
func (h *Hooks) FetchShared(k string)           { h.try(func() { h.inner.FetchShared(k) }) }
func (h *Hooks) FetchFailed(k string, e error)  { h.try(func() { h.inner.FetchFailed(k, e) }) }
func (h *Hooks) StaleWriteSkipped(k string)     { h.try(func() { h.inner.StaleWriteSkipped(k) }) }
func (h *Hooks) Invalidated(t string, n int)    { h.try(func() { h.inner.Invalidated(t, n) }) }
func (h *Hooks) MutationRolledBack(k string, e error) {
	h.try(func() { h.inner.MutationRolledBack(k, e) })
}
func (h *Hooks) InvalidateOutage(k string, be, de error) {
	h.try(func() { h.inner.InvalidateOutage(k, be, de) })
}
