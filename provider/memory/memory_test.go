package memory

import (
	"context"
	"testing"
	"time"
)

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	p := New()

	if _, ok, err := p.Get(ctx, "dashboard"); ok || err != nil {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}
	if ok, err := p.Set(ctx, "dashboard", []byte("v1"), 1, 0); !ok || err != nil {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	b, ok, err := p.Get(ctx, "dashboard")
	if err != nil || !ok || string(b) != "v1" {
		t.Fatalf("Get after Set: ok=%v err=%v b=%q", ok, err, b)
	}
	if err := p.Del(ctx, "dashboard"); err != nil {
		t.Fatal(err)
	}
	if err := p.Del(ctx, "dashboard"); err != nil {
		t.Fatalf("Del of missing key should be a no-op, got %v", err)
	}
	if p.Len() != 0 {
		t.Fatalf("expected empty provider, len=%d", p.Len())
	}
}

func TestRetentionExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	p := NewWithClock(func() time.Time { return now })

	_, _ = p.Set(ctx, "k", []byte("v"), 1, time.Minute)
	if _, ok, _ := p.Get(ctx, "k"); !ok {
		t.Fatalf("expected hit within retention")
	}
	now = now.Add(time.Minute)
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatalf("expected miss at retention boundary")
	}
	if p.Len() != 0 {
		t.Fatalf("expired entry should be dropped on read")
	}
}
