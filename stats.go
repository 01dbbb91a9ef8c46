package syncache

import "sync/atomic"

// Stats is a point-in-time copy of a Store's counters.
type Stats struct {
	Hits          uint64
	Misses        uint64
	Fetches       uint64 // fetcher invocations
	Shared        uint64 // Fetch results delivered to more than one caller
	FetchErrors   uint64
	StaleWrites   uint64 // results dropped because the key was invalidated mid-fetch
	Invalidations uint64 // keys removed by Delete/DeleteByPrefix/Clear
	SelfHeals     uint64
}

type counters struct {
	hits, misses, fetches, shared         atomic.Uint64
	fetchErrors, staleWrites, invalidated atomic.Uint64
	selfHeals                             atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Fetches:       c.fetches.Load(),
		Shared:        c.shared.Load(),
		FetchErrors:   c.fetchErrors.Load(),
		StaleWrites:   c.staleWrites.Load(),
		Invalidations: c.invalidated.Load(),
		SelfHeals:     c.selfHeals.Load(),
	}
}
