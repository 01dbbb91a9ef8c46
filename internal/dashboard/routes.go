package dashboard

import (
	"time"

	"github.com/unkn0wn-root/syncache"
	"github.com/unkn0wn-root/syncache/invalidate"
)

var (
	FamDashboard  = syncache.NewFamily("dashboard")
	FamOHLCV      = syncache.NewFamily("ohlcv")           // ohlcv:<symbol>:<interval>
	FamThemes     = syncache.NewFamily("themes-emerging") // themes-emerging:<limit>
	FamFlowTop    = syncache.NewFamily("flow-top")        // flow-top:<n>:<days>:<sector>
	FamFlowBottom = syncache.NewFamily("flow-bottom")     // flow-bottom:<n>
	FamWatchlist  = syncache.NewFamily("watchlist")
	FamIdeas      = syncache.NewFamily("ideas") // ideas:<status>
	FamPortfolio  = syncache.NewFamily("portfolio")
	// FamFlags names the feature-flag singleton; it is not stored in the Store.
	FamFlags = syncache.NewFamily("feature-flags")
)

// flowPrefix covers both flow families.
const flowPrefix = "flow-"

const (
	IdeaCreated          invalidate.Topic = "idea-created"
	PortfolioItemChanged invalidate.Topic = "portfolio-item-changed"
	PositionOpened       invalidate.Topic = "position-opened"
	PositionExited       invalidate.Topic = "position-exited"
	PriceCacheCleared    invalidate.Topic = "price-cache-cleared"
	ThemesRecomputed     invalidate.Topic = "themes-recomputed"
	FlowRefreshed        invalidate.Topic = "flow-refreshed"
	WatchlistChanged     invalidate.Topic = "watchlist-changed"
)

// CachedFamilies lists every family read through the Store.
func CachedFamilies() []syncache.Family {
	return []syncache.Family{
		FamDashboard, FamOHLCV, FamThemes, FamFlowTop, FamFlowBottom,
		FamWatchlist, FamIdeas, FamPortfolio,
	}
}

// Routes registers the dashboard route table on r.
func Routes(r *invalidate.Router) *invalidate.Router {
	dash := invalidate.Exact(FamDashboard.Key())
	portfolio := invalidate.Exact(FamPortfolio.Key())

	r.Register(IdeaCreated, dash, invalidate.Prefix(FamIdeas.Prefix()))
	r.Register(PortfolioItemChanged, dash, portfolio)
	r.Register(PositionOpened, dash, portfolio)
	r.Register(PositionExited, dash, portfolio)
	r.Register(PriceCacheCleared, invalidate.Prefix(FamOHLCV.Prefix()))
	r.Register(ThemesRecomputed, invalidate.Prefix(FamThemes.Prefix()))
	r.Register(FlowRefreshed, invalidate.Prefix(flowPrefix))
	r.Register(WatchlistChanged, invalidate.Exact(FamWatchlist.Key()))
	return r
}

// DefaultTTLs are the read TTLs per family name.
func DefaultTTLs() map[string]time.Duration {
	return map[string]time.Duration{
		FamDashboard.Name:  30 * time.Second,
		FamOHLCV.Name:      5 * time.Minute,
		FamThemes.Name:     10 * time.Minute,
		FamFlowTop.Name:    2 * time.Minute,
		FamFlowBottom.Name: 2 * time.Minute,
		FamWatchlist.Name:  time.Minute,
		FamIdeas.Name:      time.Minute,
		FamPortfolio.Name:  30 * time.Second,
	}
}
