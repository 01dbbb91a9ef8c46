// Package keyindex tracks which keys a store has written and which keys have a
// fetch in flight. Providers such as ristretto or bigcache cannot enumerate keys,
// so prefix invalidation walks this index instead.
package keyindex

import (
	"sort"
	"strings"
	"sync"
)

type Index struct {
	mu       sync.Mutex
	stored   map[string]struct{}
	inflight map[string]int
}

func New() *Index {
	return &Index{
		stored:   make(map[string]struct{}),
		inflight: make(map[string]int),
	}
}

func (ix *Index) Add(key string) {
	ix.mu.Lock()
	ix.stored[key] = struct{}{}
	ix.mu.Unlock()
}

func (ix *Index) Remove(key string) {
	ix.mu.Lock()
	delete(ix.stored, key)
	ix.mu.Unlock()
}

func (ix *Index) Has(key string) bool {
	ix.mu.Lock()
	_, ok := ix.stored[key]
	ix.mu.Unlock()
	return ok
}

func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.stored)
}

// Keys returns the stored keys in ascending order.
func (ix *Index) Keys() []string {
	ix.mu.Lock()
	out := make([]string, 0, len(ix.stored))
	for k := range ix.stored {
		out = append(out, k)
	}
	ix.mu.Unlock()
	sort.Strings(out)
	return out
}

// Begin marks key as having a fetch in flight. Every Begin must be paired with End.
func (ix *Index) Begin(key string) {
	ix.mu.Lock()
	ix.inflight[key]++
	ix.mu.Unlock()
}

func (ix *Index) End(key string) {
	ix.mu.Lock()
	if n := ix.inflight[key]; n <= 1 {
		delete(ix.inflight, key)
	} else {
		ix.inflight[key] = n - 1
	}
	ix.mu.Unlock()
}

// TakePrefix removes every stored key starting with prefix and returns them,
// together with the in-flight keys that match. The two slices may overlap.
// An empty prefix matches everything.
func (ix *Index) TakePrefix(prefix string) (stored, inflight []string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for k := range ix.stored {
		if strings.HasPrefix(k, prefix) {
			stored = append(stored, k)
			delete(ix.stored, k)
		}
	}
	for k := range ix.inflight {
		if strings.HasPrefix(k, prefix) {
			inflight = append(inflight, k)
		}
	}
	return stored, inflight
}
