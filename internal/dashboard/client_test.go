package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/unkn0wn-root/syncache"
	"github.com/unkn0wn-root/syncache/optimistic"
)

type ClientTestSuite struct {
	suite.Suite

	ctx   context.Context
	now   time.Time
	api   *fakeAPI
	store *syncache.Store
	c     *Client
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Unix(1_700_000_000, 0)
	s.api = newFakeAPI()

	store, err := syncache.NewStore(syncache.Options{Now: func() time.Time { return s.now }})
	s.Require().NoError(err)
	s.store = store

	c, err := NewClient(s.api, store, Options{})
	s.Require().NoError(err)
	s.c = c
}

func (s *ClientTestSuite) TearDownTest() {
	s.Require().NoError(s.c.Close(s.ctx))
}

func (s *ClientTestSuite) advance(d time.Duration) { s.now = s.now.Add(d) }

func (s *ClientTestSuite) TestSummaryCachedWithinTTL() {
	_, err := s.c.Summary(s.ctx)
	s.Require().NoError(err)
	_, err = s.c.Summary(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, s.api.count("summary"))

	s.advance(31 * time.Second)
	_, err = s.c.Summary(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, s.api.count("summary"))
}

func (s *ClientTestSuite) TestTTLOverride() {
	c, err := NewClient(s.api, s.store, Options{TTLs: map[string]time.Duration{"dashboard": time.Hour}})
	s.Require().NoError(err)

	_, err = c.Summary(s.ctx)
	s.Require().NoError(err)
	s.advance(10 * time.Minute)
	_, err = c.Summary(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, s.api.count("summary"))
}

func (s *ClientTestSuite) TestFailedReadIsRetried() {
	s.api.failOn("summary", errDown)
	_, err := s.c.Summary(s.ctx)
	s.ErrorIs(err, syncache.ErrFetch)
	s.ErrorIs(err, errDown)

	s.api.failOn("summary", nil)
	sum, err := s.c.Summary(s.ctx)
	s.Require().NoError(err)
	s.Equal(1000.0, sum.Equity)
	s.Equal(2, s.api.count("summary"))
}

func (s *ClientTestSuite) TestCreateIdeaInvalidatesDashboardAndIdeas() {
	_, _ = s.c.Summary(s.ctx)
	_, _ = s.c.Ideas(s.ctx, "open")
	_, _ = s.c.Portfolio(s.ctx)

	_, err := s.c.CreateIdea(s.ctx, Idea{Symbol: "AAPL", Thesis: "services"})
	s.Require().NoError(err)

	_, _ = s.c.Summary(s.ctx)
	_, _ = s.c.Ideas(s.ctx, "open")
	_, _ = s.c.Portfolio(s.ctx)
	s.Equal(2, s.api.count("summary"))
	s.Equal(2, s.api.count("ideas"))
	s.Equal(1, s.api.count("portfolio"))
}

func (s *ClientTestSuite) TestFailedWriteDoesNotInvalidate() {
	_, _ = s.c.Summary(s.ctx)
	s.api.failOn("open-position", errDown)

	_, err := s.c.OpenPosition(s.ctx, PositionRequest{Symbol: "AAPL", Quantity: 1, Price: 100})
	s.ErrorIs(err, errDown)

	_, _ = s.c.Summary(s.ctx)
	s.Equal(1, s.api.count("summary"))
}

func (s *ClientTestSuite) TestPositionLifecycleInvalidatesPortfolio() {
	_, _ = s.c.Portfolio(s.ctx)
	_, err := s.c.OpenPosition(s.ctx, PositionRequest{Symbol: "AAPL", Quantity: 1, Price: 100})
	s.Require().NoError(err)
	_, _ = s.c.Portfolio(s.ctx)
	s.Require().NoError(s.c.ExitPosition(s.ctx, "pos1"))
	_, _ = s.c.Portfolio(s.ctx)
	_, err = s.c.SavePortfolioItem(s.ctx, PortfolioItem{ID: "p1", Symbol: "AAPL", Quantity: 2})
	s.Require().NoError(err)
	_, _ = s.c.Portfolio(s.ctx)
	s.Equal(4, s.api.count("portfolio"))
}

func (s *ClientTestSuite) TestClearPriceCacheEvictsEveryOHLCVSeries() {
	_, _ = s.c.OHLCV(s.ctx, "AAPL", "1d")
	_, _ = s.c.OHLCV(s.ctx, "MSFT", "1h")
	_, _ = s.c.Summary(s.ctx)
	s.Equal(2, s.api.count("ohlcv"))

	s.Require().NoError(s.c.ClearPriceCache(s.ctx))
	_, _ = s.c.OHLCV(s.ctx, "AAPL", "1d")
	_, _ = s.c.OHLCV(s.ctx, "MSFT", "1h")
	_, _ = s.c.Summary(s.ctx)
	s.Equal(4, s.api.count("ohlcv"))
	s.Equal(1, s.api.count("summary"))
}

func (s *ClientTestSuite) TestRefreshFlowEvictsBothFlowFamilies() {
	_, _ = s.c.TopFlow(s.ctx, 5, 30, "")
	_, _ = s.c.BottomFlow(s.ctx, 5)
	_, _ = s.c.EmergingThemes(s.ctx, 10)

	s.Require().NoError(s.c.RefreshFlow(s.ctx))
	_, _ = s.c.TopFlow(s.ctx, 5, 30, "all")
	_, _ = s.c.BottomFlow(s.ctx, 5)
	_, _ = s.c.EmergingThemes(s.ctx, 10)
	s.Equal(2, s.api.count("flow-top"))
	s.Equal(2, s.api.count("flow-bottom"))
	s.Equal(1, s.api.count("themes"))

	s.Require().NoError(s.c.RecomputeThemes(s.ctx))
	_, _ = s.c.EmergingThemes(s.ctx, 10)
	s.Equal(2, s.api.count("themes"))
}

func (s *ClientTestSuite) TestToggleWatchedSuccess() {
	items, err := s.c.Watchlist(s.ctx)
	s.Require().NoError(err)
	s.Empty(items)
	s.False(s.c.Watched("AAPL"))

	var seen []bool
	cancel := s.c.SubscribeWatched("AAPL", func(v bool) { seen = append(seen, v) })
	defer cancel()

	v, err := s.c.ToggleWatched(s.ctx, "AAPL")
	s.Require().NoError(err)
	s.True(v)
	s.True(s.c.Watched("AAPL"))
	s.Equal([]bool{true, true}, seen)

	items, err = s.c.Watchlist(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, s.api.count("watchlist"))
	s.Require().Len(items, 1)
	s.Equal("g1", items[0].GroupID)
}

func (s *ClientTestSuite) TestToggleWatchedFailureRollsBack() {
	_, _ = s.c.Watchlist(s.ctx)
	s.api.failOn("set-watched", errDown)

	v, err := s.c.ToggleWatched(s.ctx, "AAPL")
	s.ErrorIs(err, optimistic.ErrRolledBack)
	s.ErrorIs(err, errDown)
	s.False(v)
	s.False(s.c.Watched("AAPL"))

	_, _ = s.c.Watchlist(s.ctx)
	s.Equal(1, s.api.count("watchlist"))
}

func (s *ClientTestSuite) TestSupersededAcceptedToggleStillInvalidates() {
	_, _ = s.c.Watchlist(s.ctx)
	started, release := make(chan struct{}), make(chan struct{})
	s.api.mu.Lock()
	s.api.watchStarted, s.api.watchRelease = started, release
	s.api.mu.Unlock()

	firstDone := make(chan error, 1)
	go func() {
		_, err := s.c.SetWatched(s.ctx, "AAPL", true)
		firstDone <- err
	}()
	<-started

	s.api.failOn("set-watched", errDown)
	_, err := s.c.SetWatched(s.ctx, "AAPL", false)
	s.ErrorIs(err, optimistic.ErrRolledBack)

	close(release)
	s.ErrorIs(<-firstDone, optimistic.ErrSuperseded)
	s.True(s.c.Watched("AAPL"))

	items, err := s.c.Watchlist(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, s.api.count("watchlist"))
	s.Require().Len(items, 1)
	s.Equal("AAPL", items[0].Symbol)
}

func (s *ClientTestSuite) TestWatchlistSeedsWatchedFlags() {
	s.api.watchlist = []WatchItem{{Symbol: "MSFT"}}
	_, err := s.c.Watchlist(s.ctx)
	s.Require().NoError(err)
	s.True(s.c.Watched("MSFT"))
	s.False(s.c.Watched("AAPL"))
}

func (s *ClientTestSuite) TestFlagsSharedLoad() {
	hold := make(chan struct{})
	s.api.flagsHold = hold

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.c.Flags(s.ctx)
			s.NoError(err)
		}()
	}
	s.Eventually(func() bool { return s.api.count("flags") >= 1 }, time.Second, time.Millisecond)
	close(hold)
	wg.Wait()
	s.Equal(1, s.api.count("flags"))
}

func (s *ClientTestSuite) TestSetFlagNotifiesObservers() {
	var a, b Flags
	cancelA := s.c.SubscribeFlags(func(f Flags) { a = f })
	cancelB := s.c.SubscribeFlags(func(f Flags) { b = f })
	defer cancelA()
	defer cancelB()

	_, err := s.c.SetFlag(s.ctx, "dark-mode", true)
	s.Require().NoError(err)
	s.True(a.Enabled("dark-mode"))
	s.True(b.Enabled("dark-mode"))

	f, err := s.c.Flags(s.ctx)
	s.Require().NoError(err)
	s.True(f.Enabled("dark-mode"))
	s.Zero(s.api.count("flags"))
}

func (s *ClientTestSuite) TestFlagsFailureServesEmptySet() {
	s.api.failOn("flags", errDown)
	f, err := s.c.Flags(s.ctx)
	s.ErrorIs(err, errDown)
	s.Empty(f)
	s.False(f.Enabled("beta"))
}

func (s *ClientTestSuite) TestRouteTableCoversEveryFamily() {
	s.NoError(s.c.Router().Check(CachedFamilies()...))
	s.Len(s.c.Router().Topics(), 8)
}
