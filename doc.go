// Package syncache is the client-side data synchronization layer of a dashboard
// client that reads from a stateless REST API. The server knows nothing about
// client caching, so freshness, deduplication and invalidation all live here.
//
// Components:
//   - Store: the TTL cache store. Values are framed with the time they were
//     written; the read path supplies the TTL. Backed by a byte Provider
//     (in-memory by default; ristretto, bigcache or Redis optional).
//   - Cache[V]: typed view over a Store with Fetch (cachedFetch). Concurrent
//     Fetch calls for one key share a single fetcher invocation.
//   - invalidate: typed topics routed to key/prefix evictions.
//   - optimistic: apply locally, confirm with the server value or roll back.
//   - shared: singleton state with one in-flight load and listener broadcast.
//
// Keys:
//
//	domain[:param1:param2...]   e.g. "ohlcv:AAPL:1d", "flow-top:5:30:all"
//
// Prefix invalidation matches literal key prefixes, so the naming convention is
// part of the contract. Use Key / Family to build keys.
//
// Generations:
//
// Every key has a generation that Delete, DeleteByPrefix and Clear bump. A
// Fetch snapshots the generation before calling the fetcher and writes its
// result only if the generation did not move, so a read racing a write can
// never put pre-write data back into the cache.
package syncache
