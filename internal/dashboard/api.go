package dashboard

import "context"

// API is the transport collaborator. RESTClient implements it over HTTP;
// tests use in-memory fakes.
type API interface {
	Summary(ctx context.Context) (Summary, error)
	OHLCV(ctx context.Context, symbol, interval string) ([]Candle, error)
	EmergingThemes(ctx context.Context, limit int) ([]Theme, error)
	TopFlow(ctx context.Context, n, days int, sector string) ([]FlowItem, error)
	BottomFlow(ctx context.Context, n int) ([]FlowItem, error)

	Watchlist(ctx context.Context) ([]WatchItem, error)
	// SetWatched returns the watched state the server stored.
	SetWatched(ctx context.Context, symbol string, watched bool) (bool, error)

	Ideas(ctx context.Context, status string) ([]Idea, error)
	CreateIdea(ctx context.Context, idea Idea) (Idea, error)

	Portfolio(ctx context.Context) ([]PortfolioItem, error)
	SavePortfolioItem(ctx context.Context, item PortfolioItem) (PortfolioItem, error)
	OpenPosition(ctx context.Context, req PositionRequest) (Position, error)
	ExitPosition(ctx context.Context, id string) error

	ClearPriceCache(ctx context.Context) error
	RecomputeThemes(ctx context.Context) error
	RefreshFlow(ctx context.Context) error

	Flags(ctx context.Context) (Flags, error)
	SaveFlags(ctx context.Context, f Flags) (Flags, error)
}
