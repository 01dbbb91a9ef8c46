package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pr "github.com/unkn0wn-root/syncache/provider"
	"github.com/unkn0wn-root/syncache/provider/memory"
	redisprov "github.com/unkn0wn-root/syncache/provider/redis"
	"github.com/unkn0wn-root/syncache/provider/ristretto"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api", cfg.APIURL)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, ProviderMemory, cfg.Provider)
	assert.Equal(t, LogLogrus, cfg.LogBackend)
	assert.Equal(t, time.Hour, cfg.Retention)
}

func TestLoadFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("DASHSYNC_PROVIDER=Ristretto\nDASHSYNC_API_TIMEOUT=3s\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("DASHSYNC_PROVIDER")
		os.Unsetenv("DASHSYNC_API_TIMEOUT")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderRistretto, cfg.Provider)
	assert.Equal(t, 3*time.Second, cfg.APITimeout)
}

func TestEnvironmentWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("DASHSYNC_LOG=zap\n"), 0o600))
	t.Setenv("DASHSYNC_LOG", "slog")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, LogSlog, cfg.LogBackend)
}

func TestMissingEnvFileIsFine(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	require.NoError(t, err)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	t.Setenv("DASHSYNC_PROVIDER", "sqlite")
	t.Setenv("DASHSYNC_LOG", "stdout")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown PROVIDER "sqlite"`)
	assert.Contains(t, err.Error(), `unknown LOG "stdout"`)
}

func TestParseTTLs(t *testing.T) {
	ttls, err := ParseTTLs([]byte("dashboard: 30s\nohlcv: 5m\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]time.Duration{"dashboard": 30 * time.Second, "ohlcv": 5 * time.Minute}, ttls)

	_, err = ParseTTLs([]byte("dashboard: soon\n"))
	assert.ErrorContains(t, err, "dashboard")

	_, err = ParseTTLs([]byte("dashboard: 0s\n"))
	assert.ErrorContains(t, err, "positive")
}

func TestCheckTTLsAgainstRetention(t *testing.T) {
	cfg := Config{Retention: 10 * time.Minute}
	defaults := map[string]time.Duration{"dashboard": 30 * time.Second, "ohlcv": 5 * time.Minute}
	require.NoError(t, cfg.CheckTTLs(defaults))

	err := cfg.CheckTTLs(defaults, map[string]time.Duration{"ohlcv": time.Hour, "themes": 2 * time.Hour})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ohlcv: ttl 1h0m0s exceeds RETENTION 10m0s")
	assert.Contains(t, err.Error(), "themes")
	assert.NotContains(t, err.Error(), "dashboard")

	// a shorter override fixes a default that is too long
	require.NoError(t, cfg.CheckTTLs(map[string]time.Duration{"ohlcv": time.Hour}, map[string]time.Duration{"ohlcv": time.Minute}))

	require.NoError(t, Config{}.CheckTTLs(map[string]time.Duration{"ohlcv": 48 * time.Hour}))
}

func TestLoadTTLsMissingFile(t *testing.T) {
	ttls, err := LoadTTLs(filepath.Join(t.TempDir(), "ttl.yaml"))
	require.NoError(t, err)
	assert.Empty(t, ttls)
}

func TestStoreOptionsSelectsProvider(t *testing.T) {
	ctx := context.Background()

	cfg := Config{Provider: ProviderMemory, Retention: time.Minute}
	opts, err := cfg.StoreOptions(ctx, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.Provider{}, opts.Provider)
	assert.Nil(t, opts.GenStore)

	cfg = Config{Provider: ProviderRistretto, MaxEntries: 100}
	opts, err = cfg.StoreOptions(ctx, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &ristretto.Provider{}, opts.Provider)
	require.NoError(t, opts.Provider.Close(ctx))
}

func TestRedisProviderFailureClosesClient(t *testing.T) {
	var rdb *goredis.Client
	orig := newRedisProvider
	newRedisProvider = func(cfg redisprov.Config) (pr.Provider, error) {
		rdb = cfg.Client.(*goredis.Client)
		return nil, errors.New("bad prefix")
	}
	t.Cleanup(func() { newRedisProvider = orig })

	cfg := Config{Provider: ProviderRedis, RedisAddr: "127.0.0.1:0"}
	_, err := cfg.StoreOptions(context.Background(), nil, nil)
	require.ErrorContains(t, err, "bad prefix")
	require.NotNil(t, rdb)
	assert.ErrorIs(t, rdb.Ping(context.Background()).Err(), goredis.ErrClosed)
}

func TestLoggerBackends(t *testing.T) {
	for _, backend := range []string{LogLogrus, LogZap, LogSlog} {
		cfg := Config{LogBackend: backend, LogLevel: "debug"}
		l, lr, err := cfg.Logger()
		require.NoError(t, err, backend)
		require.NotNil(t, l, backend)
		require.NotNil(t, lr, backend)
	}
	_, _, err := Config{LogLevel: "loud"}.Logger()
	assert.Error(t, err)
}

func TestHooksOff(t *testing.T) {
	h, stop := Config{}.Hooks()
	assert.Nil(t, h)
	stop()

	h, stop = Config{LogHooks: true, LogLevel: "info"}.Hooks()
	assert.NotNil(t, h)
	stop()
}
