package dashboard

import (
	"context"
	"errors"
	"sync"
)

var errDown = errors.New("backend down")

// fakeAPI counts calls per endpoint. Writes update the state reads return.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	summary   Summary
	watchlist []WatchItem
	flags     Flags
	fail      map[string]error
	flagsHold chan struct{}

	// watchStarted/watchRelease hold the next accepted SetWatched call
	// after the server state changed.
	watchStarted chan struct{}
	watchRelease chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls:   map[string]int{},
		summary: Summary{Equity: 1000},
		flags:   Flags{"beta": false},
		fail:    map[string]error{},
	}
}

func (f *fakeAPI) hit(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.fail[name]
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) failOn(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, name)
		return
	}
	f.fail[name] = err
}

func (f *fakeAPI) Summary(context.Context) (Summary, error) {
	if err := f.hit("summary"); err != nil {
		return Summary{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summary, nil
}

func (f *fakeAPI) OHLCV(_ context.Context, symbol, interval string) ([]Candle, error) {
	if err := f.hit("ohlcv"); err != nil {
		return nil, err
	}
	return []Candle{{T: 1, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100}}, nil
}

func (f *fakeAPI) EmergingThemes(_ context.Context, limit int) ([]Theme, error) {
	if err := f.hit("themes"); err != nil {
		return nil, err
	}
	return []Theme{{Name: "ai", Score: 0.9, Symbols: []string{"NVDA"}}}, nil
}

func (f *fakeAPI) TopFlow(_ context.Context, n, days int, sector string) ([]FlowItem, error) {
	if err := f.hit("flow-top"); err != nil {
		return nil, err
	}
	return []FlowItem{{Symbol: "AAPL", Sector: sector, NetFlow: 10}}, nil
}

func (f *fakeAPI) BottomFlow(_ context.Context, n int) ([]FlowItem, error) {
	if err := f.hit("flow-bottom"); err != nil {
		return nil, err
	}
	return []FlowItem{{Symbol: "XYZ", NetFlow: -10}}, nil
}

func (f *fakeAPI) Watchlist(context.Context) ([]WatchItem, error) {
	if err := f.hit("watchlist"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]WatchItem(nil), f.watchlist...), nil
}

func (f *fakeAPI) SetWatched(_ context.Context, symbol string, watched bool) (bool, error) {
	if err := f.hit("set-watched"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.watchlist[:0:0]
	for _, it := range f.watchlist {
		if it.Symbol != symbol {
			out = append(out, it)
		}
	}
	if watched {
		out = append(out, WatchItem{Symbol: symbol, GroupID: "g1"})
	}
	f.watchlist = out
	started, release := f.watchStarted, f.watchRelease
	f.watchStarted, f.watchRelease = nil, nil
	f.mu.Unlock()
	if started != nil {
		close(started)
		<-release
	}
	f.mu.Lock()
	return watched, nil
}

func (f *fakeAPI) Ideas(_ context.Context, status string) ([]Idea, error) {
	if err := f.hit("ideas"); err != nil {
		return nil, err
	}
	return []Idea{{ID: "1", Symbol: "AAPL", Status: status}}, nil
}

func (f *fakeAPI) CreateIdea(_ context.Context, idea Idea) (Idea, error) {
	if err := f.hit("create-idea"); err != nil {
		return Idea{}, err
	}
	idea.ID = "2"
	return idea, nil
}

func (f *fakeAPI) Portfolio(context.Context) ([]PortfolioItem, error) {
	if err := f.hit("portfolio"); err != nil {
		return nil, err
	}
	return []PortfolioItem{{ID: "p1", Symbol: "AAPL", Quantity: 3}}, nil
}

func (f *fakeAPI) SavePortfolioItem(_ context.Context, item PortfolioItem) (PortfolioItem, error) {
	return item, f.hit("save-portfolio")
}

func (f *fakeAPI) OpenPosition(_ context.Context, req PositionRequest) (Position, error) {
	return Position{ID: "pos1", Symbol: req.Symbol, Quantity: req.Quantity, Entry: req.Price}, f.hit("open-position")
}

func (f *fakeAPI) ExitPosition(context.Context, string) error { return f.hit("exit-position") }
func (f *fakeAPI) ClearPriceCache(context.Context) error      { return f.hit("clear-prices") }
func (f *fakeAPI) RecomputeThemes(context.Context) error      { return f.hit("recompute-themes") }
func (f *fakeAPI) RefreshFlow(context.Context) error          { return f.hit("refresh-flow") }

func (f *fakeAPI) Flags(context.Context) (Flags, error) {
	if err := f.hit("flags"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	hold := f.flagsHold
	out := make(Flags, len(f.flags))
	for k, v := range f.flags {
		out[k] = v
	}
	f.mu.Unlock()
	if hold != nil {
		<-hold
	}
	return out, nil
}

func (f *fakeAPI) SaveFlags(_ context.Context, in Flags) (Flags, error) {
	if err := f.hit("save-flags"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags = in
	return in, nil
}
