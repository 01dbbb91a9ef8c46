package dashboard

import "time"

type Summary struct {
	Equity      float64   `json:"equity" msgpack:"equity"`
	DayChange   float64   `json:"day_change" msgpack:"day_change"`
	OpenIdeas   int       `json:"open_ideas" msgpack:"open_ideas"`
	Positions   int       `json:"positions" msgpack:"positions"`
	GeneratedAt time.Time `json:"generated_at" msgpack:"generated_at"`
}

// Candle is one OHLCV bar.
type Candle struct {
	T      int64   `json:"t" msgpack:"t"`
	Open   float64 `json:"o" msgpack:"o"`
	High   float64 `json:"h" msgpack:"h"`
	Low    float64 `json:"l" msgpack:"l"`
	Close  float64 `json:"c" msgpack:"c"`
	Volume float64 `json:"v" msgpack:"v"`
}

type Theme struct {
	Name    string   `json:"name" msgpack:"name"`
	Score   float64  `json:"score" msgpack:"score"`
	Symbols []string `json:"symbols" msgpack:"symbols"`
}

type FlowItem struct {
	Symbol  string  `json:"symbol" msgpack:"symbol"`
	Sector  string  `json:"sector" msgpack:"sector"`
	NetFlow float64 `json:"net_flow" msgpack:"net_flow"`
}

type WatchItem struct {
	Symbol  string `json:"symbol" msgpack:"symbol"`
	GroupID string `json:"group_id,omitempty" msgpack:"group_id"`
}

type Idea struct {
	ID     string `json:"id,omitempty" msgpack:"id"`
	Symbol string `json:"symbol" msgpack:"symbol"`
	Thesis string `json:"thesis" msgpack:"thesis"`
	Status string `json:"status,omitempty" msgpack:"status"`
}

type PortfolioItem struct {
	ID       string  `json:"id" msgpack:"id"`
	Symbol   string  `json:"symbol" msgpack:"symbol"`
	Quantity float64 `json:"quantity" msgpack:"quantity"`
	Note     string  `json:"note,omitempty" msgpack:"note"`
}

type PositionRequest struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

type Position struct {
	ID       string  `json:"id"`
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Entry    float64 `json:"entry"`
}

// Flags is the feature-flag set, keyed by flag name.
type Flags map[string]bool

func (f Flags) Enabled(name string) bool { return f[name] }

func (f Flags) With(name string, on bool) Flags {
	out := make(Flags, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	out[name] = on
	return out
}
