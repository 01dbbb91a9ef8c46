package bigcache

import (
	"context"
	"testing"
	"time"
)

func TestRoundTripAndMissingDelete(t *testing.T) {
	ctx := context.Background()
	p, err := New(ctx, Config{LifeWindow: time.Minute, Shards: 16, MaxEntriesInWindow: 100, MaxEntrySize: 256})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close(ctx)

	if _, ok, err := p.Get(ctx, "watchlist"); ok || err != nil {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}
	if ok, err := p.Set(ctx, "watchlist", []byte("[1,2]"), 1, 0); !ok || err != nil {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	b, ok, err := p.Get(ctx, "watchlist")
	if err != nil || !ok || string(b) != "[1,2]" {
		t.Fatalf("Get: ok=%v err=%v b=%q", ok, err, b)
	}
	if err := p.Del(ctx, "watchlist"); err != nil {
		t.Fatal(err)
	}
	if err := p.Del(ctx, "watchlist"); err != nil {
		t.Fatalf("deleting a missing key should not fail: %v", err)
	}
}
