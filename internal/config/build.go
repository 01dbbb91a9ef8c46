package config

import (
	"context"
	"fmt"
	stdslog "log/slog"
	"os"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/syncache"
	gen "github.com/unkn0wn-root/syncache/genstore"
	asynchook "github.com/unkn0wn-root/syncache/hooks/async"
	logruslog "github.com/unkn0wn-root/syncache/log/logrus"
	slogadapter "github.com/unkn0wn-root/syncache/log/slog"
	zaplog "github.com/unkn0wn-root/syncache/log/zap"
	pr "github.com/unkn0wn-root/syncache/provider"
	"github.com/unkn0wn-root/syncache/provider/bigcache"
	"github.com/unkn0wn-root/syncache/provider/memory"
	"github.com/unkn0wn-root/syncache/provider/ristretto"
	redisprov "github.com/unkn0wn-root/syncache/provider/redis"
	"github.com/unkn0wn-root/syncache/sloghooks"
)

// newRedisProvider is replaced in tests.
var newRedisProvider = func(cfg redisprov.Config) (pr.Provider, error) { return redisprov.New(cfg) }

// StoreOptions builds the provider and generation store selected by c. The
// caller owns the returned store and must Close it.
func (c Config) StoreOptions(ctx context.Context, log syncache.Logger, hooks syncache.Hooks) (syncache.Options, error) {
	opts := syncache.Options{
		Logger:    log,
		Hooks:     hooks,
		Retention: c.Retention,
		Disabled:  c.Disabled,
	}

	var (
		p   pr.Provider
		err error
	)
	switch c.Provider {
	case ProviderMemory:
		p = memory.New()
	case ProviderRistretto:
		p, err = ristretto.New(ristretto.DefaultConfig(c.MaxEntries))
	case ProviderBigcache:
		p, err = bigcache.New(ctx, bigcache.Config{
			LifeWindow:         c.Retention,
			MaxEntriesInWindow: int(c.MaxEntries),
		})
	case ProviderRedis:
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		// generations live next to the entries so every client sees the same
		// invalidations; the gen store owns and closes the client
		p, err = newRedisProvider(redisprov.Config{Client: rdb, Prefix: c.RedisPrefix})
		if err != nil {
			_ = rdb.Close()
			return opts, fmt.Errorf("%s provider: %w", c.Provider, err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return opts, fmt.Errorf("redis %s: %w", c.RedisAddr, err)
		}
		if c.Retention > 0 {
			opts.GenStore = gen.NewRedisGenStoreWithTTL(rdb, c.RedisPrefix, 24*c.Retention)
		} else {
			opts.GenStore = gen.NewRedisGenStore(rdb, c.RedisPrefix)
		}
	default:
		return opts, fmt.Errorf("unknown provider %q", c.Provider)
	}
	if err != nil {
		return opts, fmt.Errorf("%s provider: %w", c.Provider, err)
	}
	opts.Provider = p
	return opts, nil
}

// Logger returns the syncache adapter for the configured backend and the
// logrus entry point the command logs through.
func (c Config) Logger() (syncache.Logger, *logrus.Logger, error) {
	lr := logrus.New()
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	lr.SetLevel(lvl)

	switch c.LogBackend {
	case LogZap:
		zcfg := zap.NewProductionConfig()
		zl, err := zapcore.ParseLevel(c.LogLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(zl)
		z, err := zcfg.Build()
		if err != nil {
			return nil, nil, err
		}
		return zaplog.New(z), lr, nil
	case LogSlog:
		return slogadapter.Logger{L: slogger(lvl)}, lr, nil
	default:
		return logruslog.New(lr), lr, nil
	}
}

// Hooks returns the event hooks for c, or nil when LogHooks is off. Call the
// returned stop func on shutdown to drain the worker queue.
func (c Config) Hooks() (syncache.Hooks, func()) {
	if !c.LogHooks {
		return nil, func() {}
	}
	lvl, _ := logrus.ParseLevel(c.LogLevel)
	h := asynchook.New(sloghooks.New(slogger(lvl), sloghooks.Options{
		SelfHealEvery:    1,
		FetchSharedEvery: 100,
		RedactSHA:        true,
	}), 1, 256)
	return h, h.Close
}

func slogger(lvl logrus.Level) *stdslog.Logger {
	sl := stdslog.LevelInfo
	switch {
	case lvl >= logrus.DebugLevel:
		sl = stdslog.LevelDebug
	case lvl == logrus.WarnLevel:
		sl = stdslog.LevelWarn
	case lvl <= logrus.ErrorLevel:
		sl = stdslog.LevelError
	}
	return stdslog.New(stdslog.NewTextHandler(os.Stderr, &stdslog.HandlerOptions{Level: sl}))
}
