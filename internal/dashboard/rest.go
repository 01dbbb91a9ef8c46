package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// RESTClient implements API against the dashboard REST backend.
type RESTClient struct {
	base  string
	token string
	http  *http.Client
}

var _ API = (*RESTClient)(nil)

// NewRESTClient builds a client for baseURL (e.g. "http://localhost:8000/api").
// hc may be nil; a client with timeout is created then.
func NewRESTClient(baseURL, token string, timeout time.Duration, hc *http.Client) (*RESTClient, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url %q: scheme must be http or https", baseURL)
	}
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	return &RESTClient{base: strings.TrimRight(u.String(), "/"), token: token, http: hc}, nil
}

func (c *RESTClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &StatusError{Method: method, Path: path, Status: res.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func get[T any](ctx context.Context, c *RESTClient, path string) (T, error) {
	var out T
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func send[T any](ctx context.Context, c *RESTClient, method, path string, in any) (T, error) {
	var out T
	err := c.do(ctx, method, path, in, &out)
	return out, err
}

func (c *RESTClient) Summary(ctx context.Context) (Summary, error) {
	return get[Summary](ctx, c, "/dashboard/summary")
}

func (c *RESTClient) OHLCV(ctx context.Context, symbol, interval string) ([]Candle, error) {
	q := url.Values{"interval": {interval}}
	return get[[]Candle](ctx, c, "/ohlcv/"+url.PathEscape(symbol)+"?"+q.Encode())
}

func (c *RESTClient) EmergingThemes(ctx context.Context, limit int) ([]Theme, error) {
	return get[[]Theme](ctx, c, "/themes/emerging?limit="+strconv.Itoa(limit))
}

func (c *RESTClient) TopFlow(ctx context.Context, n, days int, sector string) ([]FlowItem, error) {
	q := url.Values{"n": {strconv.Itoa(n)}, "days": {strconv.Itoa(days)}, "sector": {sector}}
	return get[[]FlowItem](ctx, c, "/flow/top?"+q.Encode())
}

func (c *RESTClient) BottomFlow(ctx context.Context, n int) ([]FlowItem, error) {
	return get[[]FlowItem](ctx, c, "/flow/bottom?n="+strconv.Itoa(n))
}

func (c *RESTClient) Watchlist(ctx context.Context) ([]WatchItem, error) {
	return get[[]WatchItem](ctx, c, "/watchlist")
}

func (c *RESTClient) SetWatched(ctx context.Context, symbol string, watched bool) (bool, error) {
	type state struct {
		Watched bool `json:"watched"`
	}
	out, err := send[state](ctx, c, http.MethodPut, "/watchlist/"+url.PathEscape(symbol), state{Watched: watched})
	return out.Watched, err
}

func (c *RESTClient) Ideas(ctx context.Context, status string) ([]Idea, error) {
	return get[[]Idea](ctx, c, "/ideas?status="+url.QueryEscape(status))
}

func (c *RESTClient) CreateIdea(ctx context.Context, idea Idea) (Idea, error) {
	return send[Idea](ctx, c, http.MethodPost, "/ideas", idea)
}

func (c *RESTClient) Portfolio(ctx context.Context) ([]PortfolioItem, error) {
	return get[[]PortfolioItem](ctx, c, "/portfolio")
}

func (c *RESTClient) SavePortfolioItem(ctx context.Context, item PortfolioItem) (PortfolioItem, error) {
	return send[PortfolioItem](ctx, c, http.MethodPut, "/portfolio/"+url.PathEscape(item.ID), item)
}

func (c *RESTClient) OpenPosition(ctx context.Context, req PositionRequest) (Position, error) {
	return send[Position](ctx, c, http.MethodPost, "/positions", req)
}

func (c *RESTClient) ExitPosition(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/positions/"+url.PathEscape(id)+"/exit", nil, nil)
}

func (c *RESTClient) ClearPriceCache(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/prices/cache/clear", nil, nil)
}

func (c *RESTClient) RecomputeThemes(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/themes/recompute", nil, nil)
}

func (c *RESTClient) RefreshFlow(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/flow/refresh", nil, nil)
}

func (c *RESTClient) Flags(ctx context.Context) (Flags, error) {
	return get[Flags](ctx, c, "/feature-flags")
}

func (c *RESTClient) SaveFlags(ctx context.Context, f Flags) (Flags, error) {
	return send[Flags](ctx, c, http.MethodPut, "/feature-flags", f)
}
