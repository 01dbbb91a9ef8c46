// Package listeners is a set of update callbacks. Observers register when they
// mount and cancel when they unmount.
package listeners

import "sync"

type Set[T any] struct {
	mu   sync.Mutex
	next uint64
	fns  map[uint64]func(T)
}

func New[T any]() *Set[T] {
	return &Set[T]{fns: make(map[uint64]func(T))}
}

// Add registers fn and returns a cancel func. Cancel is idempotent.
func (s *Set[T]) Add(fn func(T)) (cancel func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.fns[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		})
	}
}

func (s *Set[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}

// Notify calls every registered listener once with v, on the caller's
// goroutine. Listeners are snapshotted first, so a listener may cancel itself
// or register others without deadlocking.
func (s *Set[T]) Notify(v T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
