package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/unkn0wn-root/syncache/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

// Redis stores entries under "<Prefix><key>". The prefix keeps several
// dashboards (or test runs) from sharing one database by accident.
type Redis struct {
	rdb         goredis.UniversalClient
	prefix      string
	closeClient bool
}

var (
	_ pr.Provider = (*Redis)(nil)
	_ pr.Scanner  = (*Redis)(nil)
)

// scanBatch is the COUNT hint per SCAN round trip.
const scanBatch = 500

type Config struct {
	Client      goredis.UniversalClient
	Prefix      string
	CloseClient bool // set true only if this provider exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, prefix: cfg.Prefix, closeClient: cfg.CloseClient}, nil
}

func (p *Redis) k(key string) string { return p.prefix + key }

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, p.k(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (p *Redis) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0 // no expiry
	}
	if err := p.rdb.Set(ctx, p.k(key), value, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Redis) Del(ctx context.Context, key string) error {
	return p.rdb.Del(ctx, p.k(key)).Err()
}

// Keys walks the keyspace with SCAN and strips Prefix from the results.
func (p *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	it := p.rdb.Scan(ctx, 0, globEscape(p.prefix+prefix)+"*", scanBatch).Iterator()
	for it.Next(ctx) {
		out = append(out, strings.TrimPrefix(it.Val(), p.prefix))
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// globEscape quotes the characters MATCH treats as patterns.
func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close releases the underlying redis client only when this provider owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
