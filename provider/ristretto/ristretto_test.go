package ristretto

import (
	"context"
	"testing"
	"time"
)

func TestRoundTripWithSyncWrites(t *testing.T) {
	ctx := context.Background()
	p, err := New(DefaultConfig(100))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close(ctx)

	ok, err := p.Set(ctx, "dashboard", []byte("summary"), 1, time.Minute)
	if err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	b, ok, err := p.Get(ctx, "dashboard")
	if err != nil || !ok || string(b) != "summary" {
		t.Fatalf("Get: ok=%v err=%v b=%q", ok, err, b)
	}
	if err := p.Del(ctx, "dashboard"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := p.Get(ctx, "dashboard"); ok {
		t.Fatalf("expected miss after Del")
	}
}

func TestInvalidConfig(t *testing.T) {
	if _, err := New(Config{}); err != ErrInvalidConfig {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
