package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/syncache"
	"github.com/unkn0wn-root/syncache/codec"
	"github.com/unkn0wn-root/syncache/invalidate"
	"github.com/unkn0wn-root/syncache/optimistic"
	"github.com/unkn0wn-root/syncache/shared"
)

type Options struct {
	Logger syncache.Logger
	Hooks  syncache.Hooks
	// TTLs overrides DefaultTTLs per family name.
	TTLs map[string]time.Duration
	// Codec names the codec for JSON-shaped payloads (see codec.ForName).
	// OHLCV series always use msgpack.
	Codec string
	// MaxDecode rejects cached payloads over this many bytes; 0 disables.
	MaxDecode int
}

// Client is what dashboard pages talk to. Reads go through the Store with a
// per-family TTL; writes go to the API and then publish the matching topic.
type Client struct {
	api    API
	store  *syncache.Store
	router *invalidate.Router
	log    syncache.Logger
	ttls   map[string]time.Duration

	summary   syncache.Cache[Summary]
	candles   syncache.Cache[[]Candle]
	themes    syncache.Cache[[]Theme]
	flow      syncache.Cache[[]FlowItem]
	watchlist syncache.Cache[[]WatchItem]
	ideas     syncache.Cache[[]Idea]
	portfolio syncache.Cache[[]PortfolioItem]

	watched *optimistic.Group[string, bool]
	flags   *shared.Singleton[Flags]
}

func NewClient(api API, store *syncache.Store, opts Options) (*Client, error) {
	if api == nil || store == nil {
		return nil, fmt.Errorf("dashboard: api and store are required")
	}
	c := &Client{
		api:   api,
		store: store,
		log:   opts.Logger,
		ttls:  DefaultTTLs(),
	}
	if c.log == nil {
		c.log = syncache.NopLogger{}
	}
	for name, d := range opts.TTLs {
		c.ttls[name] = d
	}

	c.router = Routes(invalidate.NewRouter(store, invalidate.Options{Logger: c.log, Hooks: opts.Hooks}))
	if err := c.router.Check(CachedFamilies()...); err != nil {
		return nil, err
	}

	var err error
	if c.summary, err = typed[Summary](store, opts); err != nil {
		return nil, err
	}
	if c.candles, err = syncache.New(store, codec.WithLimit[[]Candle](codec.Msgpack[[]Candle]{}, opts.MaxDecode)); err != nil {
		return nil, err
	}
	if c.themes, err = typed[[]Theme](store, opts); err != nil {
		return nil, err
	}
	if c.flow, err = typed[[]FlowItem](store, opts); err != nil {
		return nil, err
	}
	if c.watchlist, err = typed[[]WatchItem](store, opts); err != nil {
		return nil, err
	}
	if c.ideas, err = typed[[]Idea](store, opts); err != nil {
		return nil, err
	}
	if c.portfolio, err = typed[[]PortfolioItem](store, opts); err != nil {
		return nil, err
	}

	c.watched = optimistic.NewGroup(func(string) bool { return false }, optimistic.Options{
		Key:    "watched",
		Logger: c.log,
		Hooks:  opts.Hooks,
	})
	c.flags, err = shared.New(shared.Options[Flags]{
		Name:    FamFlags.Name,
		Default: Flags{},
		Load:    api.Flags,
		Save:    api.SaveFlags,
		Logger:  c.log,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func typed[V any](s *syncache.Store, opts Options) (syncache.Cache[V], error) {
	cd, err := codec.ForName[V](opts.Codec)
	if err != nil {
		return nil, err
	}
	return syncache.New(s, codec.WithLimit(cd, opts.MaxDecode))
}

func (c *Client) Router() *invalidate.Router { return c.router }

func (c *Client) ttl(f syncache.Family) time.Duration { return c.ttls[f.Name] }

func (c *Client) Summary(ctx context.Context) (Summary, error) {
	return c.summary.Fetch(ctx, FamDashboard.Key(), c.ttl(FamDashboard), c.api.Summary)
}

func (c *Client) OHLCV(ctx context.Context, symbol, interval string) ([]Candle, error) {
	return c.candles.Fetch(ctx, FamOHLCV.Key(symbol, interval), c.ttl(FamOHLCV), func(ctx context.Context) ([]Candle, error) {
		return c.api.OHLCV(ctx, symbol, interval)
	})
}

func (c *Client) EmergingThemes(ctx context.Context, limit int) ([]Theme, error) {
	return c.themes.Fetch(ctx, FamThemes.Key(limit), c.ttl(FamThemes), func(ctx context.Context) ([]Theme, error) {
		return c.api.EmergingThemes(ctx, limit)
	})
}

// TopFlow reads the top n symbols by net flow over days. An empty sector
// means all sectors.
func (c *Client) TopFlow(ctx context.Context, n, days int, sector string) ([]FlowItem, error) {
	if sector == "" {
		sector = "all"
	}
	return c.flow.Fetch(ctx, FamFlowTop.Key(n, days, sector), c.ttl(FamFlowTop), func(ctx context.Context) ([]FlowItem, error) {
		return c.api.TopFlow(ctx, n, days, sector)
	})
}

func (c *Client) BottomFlow(ctx context.Context, n int) ([]FlowItem, error) {
	return c.flow.Fetch(ctx, FamFlowBottom.Key(n), c.ttl(FamFlowBottom), func(ctx context.Context) ([]FlowItem, error) {
		return c.api.BottomFlow(ctx, n)
	})
}

// Watchlist reads the watchlist and seeds the watched flag of every listed
// symbol that has no toggle pending.
func (c *Client) Watchlist(ctx context.Context) ([]WatchItem, error) {
	items, err := c.watchlist.Fetch(ctx, FamWatchlist.Key(), c.ttl(FamWatchlist), c.api.Watchlist)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		w := c.watched.Get(it.Symbol)
		if !w.Pending() && !w.Value() {
			w.Reset(true)
		}
	}
	return items, nil
}

func (c *Client) Ideas(ctx context.Context, status string) ([]Idea, error) {
	if status == "" {
		status = "open"
	}
	return c.ideas.Fetch(ctx, FamIdeas.Key(status), c.ttl(FamIdeas), func(ctx context.Context) ([]Idea, error) {
		return c.api.Ideas(ctx, status)
	})
}

func (c *Client) Portfolio(ctx context.Context) ([]PortfolioItem, error) {
	return c.portfolio.Fetch(ctx, FamPortfolio.Key(), c.ttl(FamPortfolio), c.api.Portfolio)
}

func (c *Client) CreateIdea(ctx context.Context, idea Idea) (Idea, error) {
	out, err := c.api.CreateIdea(ctx, idea)
	if err != nil {
		return Idea{}, err
	}
	c.publish(ctx, IdeaCreated)
	return out, nil
}

func (c *Client) SavePortfolioItem(ctx context.Context, item PortfolioItem) (PortfolioItem, error) {
	out, err := c.api.SavePortfolioItem(ctx, item)
	if err != nil {
		return PortfolioItem{}, err
	}
	c.publish(ctx, PortfolioItemChanged)
	return out, nil
}

func (c *Client) OpenPosition(ctx context.Context, req PositionRequest) (Position, error) {
	p, err := c.api.OpenPosition(ctx, req)
	if err != nil {
		return Position{}, err
	}
	c.publish(ctx, PositionOpened)
	return p, nil
}

func (c *Client) ExitPosition(ctx context.Context, id string) error {
	if err := c.api.ExitPosition(ctx, id); err != nil {
		return err
	}
	c.publish(ctx, PositionExited)
	return nil
}

func (c *Client) ClearPriceCache(ctx context.Context) error {
	if err := c.api.ClearPriceCache(ctx); err != nil {
		return err
	}
	c.publish(ctx, PriceCacheCleared)
	return nil
}

func (c *Client) RecomputeThemes(ctx context.Context) error {
	if err := c.api.RecomputeThemes(ctx); err != nil {
		return err
	}
	c.publish(ctx, ThemesRecomputed)
	return nil
}

func (c *Client) RefreshFlow(ctx context.Context) error {
	if err := c.api.RefreshFlow(ctx); err != nil {
		return err
	}
	c.publish(ctx, FlowRefreshed)
	return nil
}

// Watched is the observable watched flag of symbol, including a pending toggle.
func (c *Client) Watched(symbol string) bool { return c.watched.Value(symbol) }

func (c *Client) SubscribeWatched(symbol string, fn func(bool)) (cancel func()) {
	return c.watched.Get(symbol).Subscribe(fn)
}

// SetWatched flips symbol's flag immediately and confirms with the server.
// On failure the flag is rolled back and the error wraps
// optimistic.ErrRolledBack. The watchlist is invalidated whenever the server
// accepted the write, even if a newer toggle superseded this one.
func (c *Client) SetWatched(ctx context.Context, symbol string, watched bool) (bool, error) {
	return c.watched.Mutate(ctx, symbol, watched, func(ctx context.Context, proposed bool) (bool, error) {
		got, err := c.api.SetWatched(ctx, symbol, proposed)
		if err != nil {
			return got, err
		}
		c.publish(ctx, WatchlistChanged)
		return got, nil
	})
}

// ToggleWatched proposes the opposite of the current observable flag.
func (c *Client) ToggleWatched(ctx context.Context, symbol string) (bool, error) {
	return c.SetWatched(ctx, symbol, !c.Watched(symbol))
}

// Flags returns the shared feature-flag set. On failure it returns the empty
// set along with the error.
func (c *Client) Flags(ctx context.Context) (Flags, error) { return c.flags.Fetch(ctx) }

func (c *Client) SetFlag(ctx context.Context, name string, on bool) (Flags, error) {
	return c.flags.Mutate(ctx, func(cur Flags) Flags { return cur.With(name, on) })
}

func (c *Client) SubscribeFlags(fn func(Flags)) (cancel func()) { return c.flags.Subscribe(fn) }

// Close releases the underlying store.
func (c *Client) Close(ctx context.Context) error { return c.store.Close(ctx) }

// publish runs after the server accepted a write. A store failure is logged
// and does not fail the write that already happened.
func (c *Client) publish(ctx context.Context, topic invalidate.Topic) {
	rep, err := c.router.Publish(ctx, topic)
	if err != nil {
		c.log.Error("invalidation failed", syncache.Fields{"topic": topic.String(), "err": err})
		return
	}
	c.log.Debug("invalidated", syncache.Fields{"topic": topic.String(), "removed": rep.Removed})
}
