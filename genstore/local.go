package genstore

import (
	"context"
	"sync"
	"time"
)

// LocalOptions configure an in-process generation store.
type LocalOptions struct {
	// Sweep is how often generations idle for longer than Retention are
	// dropped. The sweeper runs only when both are positive.
	Sweep     time.Duration
	Retention time.Duration
	Now       func() time.Time // nil => time.Now
}

type localGen struct {
	gen     uint64
	touched time.Time
}

// LocalGenStore keeps generations in a map. It is the default for a single
// dashboard process.
//
// Dropping an idle generation resets it to 0. That is safe as long as
// Retention outlives the provider's own retention: an entry written under the
// old generation is gone by then, and any survivor fails the generation check
// and is healed on read.
type LocalGenStore struct {
	now func() time.Time

	mu   sync.RWMutex
	gens map[string]localGen

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ GenStore = (*LocalGenStore)(nil)

func NewLocalGenStore(opts LocalOptions) *LocalGenStore {
	s := &LocalGenStore{now: opts.Now, gens: make(map[string]localGen)}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.Sweep > 0 && opts.Retention > 0 {
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.sweep(opts.Sweep, opts.Retention)
	}
	return s
}

func (s *LocalGenStore) sweep(every, retention time.Duration) {
	t := time.NewTicker(every)
	defer func() {
		t.Stop()
		close(s.done)
	}()
	for {
		select {
		case <-t.C:
			s.Cleanup(retention)
		case <-s.stop:
			return
		}
	}
}

func (s *LocalGenStore) Snapshot(_ context.Context, key string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gens[key].gen, nil
}

func (s *LocalGenStore) SnapshotMany(_ context.Context, keys []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(keys))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range keys {
		out[k] = s.gens[k].gen
	}
	return out, nil
}

func (s *LocalGenStore) Bump(_ context.Context, key string) (uint64, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bump(key, now), nil
}

func (s *LocalGenStore) BumpMany(_ context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.bump(k, now)
	}
	return nil
}

// bump requires s.mu held for writing.
func (s *LocalGenStore) bump(key string, now time.Time) uint64 {
	g := s.gens[key]
	g.gen++
	g.touched = now
	s.gens[key] = g
	return g.gen
}

// Cleanup drops generations not bumped within retention.
func (s *LocalGenStore) Cleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	cutoff := s.now().Add(-retention)
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, g := range s.gens {
		if g.touched.Before(cutoff) {
			delete(s.gens, k)
		}
	}
}

// Len is the number of keys with a non-zero generation.
func (s *LocalGenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.gens)
}

// Close stops the sweeper. Calling it again is a no-op.
func (s *LocalGenStore) Close(context.Context) error {
	s.closeOnce.Do(func() {
		if s.stop != nil {
			close(s.stop)
			<-s.done
		}
	})
	return nil
}
