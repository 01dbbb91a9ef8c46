package syncache

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; they run on hot paths.
// Wrap a slow implementation with hooks/async.
type Hooks interface {
	// An entry was deleted by the store on read.
	// reason ∈ {"corrupt", "gen_mismatch", "value_decode"}
	SelfHeal(key, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(key string)

	// GenStore errors. count is the number of keys involved.
	GenSnapshotError(count int, err error)
	GenBumpError(count int, err error)

	// Both gen bump and delete failed during an invalidation (backend outage).
	InvalidateOutage(key string, bumpErr, delErr error)

	// A Fetch result was handed to more than one caller.
	FetchShared(key string)

	// A fetcher failed; nothing was cached.
	FetchFailed(key string, err error)

	// A fetch finished after its key was invalidated; the result was not cached.
	StaleWriteSkipped(key string)

	// An optimistic mutation failed and observable state was restored.
	MutationRolledBack(key string, err error)

	// An invalidation topic was published and removed that many entries.
	Invalidated(topic string, removed int)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SelfHeal(string, string)               {}
func (NopHooks) ProviderSetRejected(string)            {}
func (NopHooks) GenSnapshotError(int, error)           {}
func (NopHooks) GenBumpError(int, error)               {}
func (NopHooks) InvalidateOutage(string, error, error) {}
func (NopHooks) FetchShared(string)                    {}
func (NopHooks) FetchFailed(string, error)             {}
func (NopHooks) StaleWriteSkipped(string)              {}
func (NopHooks) MutationRolledBack(string, error)      {}
func (NopHooks) Invalidated(string, int)               {}
