package genstore

import (
	"context"
	"sync"
	"testing"
	"time"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestLocalSnapshotManyZeroForMissing(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore(LocalOptions{})
	t.Cleanup(func() { _ = s.Close(ctx) })

	for i := 0; i < 2; i++ {
		if _, err := s.Bump(ctx, "watchlist"); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.SnapshotMany(ctx, []string{"dashboard", "watchlist", "portfolio"})
	if err != nil {
		t.Fatal(err)
	}
	if got["dashboard"] != 0 || got["watchlist"] != 2 || got["portfolio"] != 0 {
		t.Fatalf("got=%v want dashboard=0,watchlist=2,portfolio=0", got)
	}
	if s.Len() != 1 {
		t.Fatalf("missing keys must not be materialized, len=%d", s.Len())
	}
}

func TestLocalBumpManyIncrementsEach(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore(LocalOptions{})
	t.Cleanup(func() { _ = s.Close(ctx) })

	g, err := s.Bump(ctx, "ohlcv:AAPL:1d")
	if err != nil || g != 1 {
		t.Fatalf("Bump = %d, %v", g, err)
	}
	if err := s.BumpMany(ctx, []string{"ohlcv:AAPL:1d", "ohlcv:MSFT:1d"}); err != nil {
		t.Fatal(err)
	}
	got, _ := s.SnapshotMany(ctx, []string{"ohlcv:AAPL:1d", "ohlcv:MSFT:1d"})
	if got["ohlcv:AAPL:1d"] != 2 || got["ohlcv:MSFT:1d"] != 1 {
		t.Fatalf("got=%v", got)
	}
	if err := s.BumpMany(ctx, nil); err != nil {
		t.Fatalf("empty BumpMany: %v", err)
	}
}

func TestLocalCleanupDropsIdle(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	s := NewLocalGenStore(LocalOptions{Now: clk.now})
	t.Cleanup(func() { _ = s.Close(ctx) })

	_, _ = s.Bump(ctx, "idle")
	clk.advance(2 * time.Hour)
	_, _ = s.Bump(ctx, "busy")

	s.Cleanup(time.Hour)

	if g, _ := s.Snapshot(ctx, "idle"); g != 0 {
		t.Fatalf("idle gen should be dropped, got %d", g)
	}
	if g, _ := s.Snapshot(ctx, "busy"); g != 1 {
		t.Fatalf("busy gen should survive, got %d", g)
	}
	s.Cleanup(0)
	if s.Len() != 1 {
		t.Fatalf("Cleanup(0) must be a no-op, len=%d", s.Len())
	}
}

func TestLocalCloseTwice(t *testing.T) {
	s := NewLocalGenStore(LocalOptions{Sweep: 10 * time.Millisecond, Retention: time.Minute})
	if err := s.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
}
