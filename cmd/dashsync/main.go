// Command dashsync runs one synchronization pass of the dashboard client
// against the REST API: it warms the summary, feature flags and watchlist, and
// optionally toggles a watched symbol.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/syncache"
	"github.com/unkn0wn-root/syncache/internal/config"
	"github.com/unkn0wn-root/syncache/internal/dashboard"
)

func main() {
	envFile := flag.String("env", os.Getenv("ENV_FILE"), "path to a .env file")
	watch := flag.String("watch", "", "toggle the watched flag of this symbol")
	flow := flag.Bool("refresh-flow", false, "ask the server to refresh flow rankings")
	flag.Parse()
	if *envFile == "" {
		*envFile = ".env"
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	clog, lr, err := cfg.Logger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	log.SetLevel(lr.GetLevel())

	ttls, err := config.LoadTTLs(cfg.TTLFile)
	if err != nil {
		log.Fatalf("ttl table: %v", err)
	}
	if err := cfg.CheckTTLs(dashboard.DefaultTTLs(), ttls); err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hooks, stopHooks := cfg.Hooks()
	defer stopHooks()

	opts, err := cfg.StoreOptions(ctx, clog, hooks)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	store, err := syncache.NewStore(opts)
	if err != nil {
		log.Fatalf("store: %v", err)
	}

	api, err := dashboard.NewRESTClient(cfg.APIURL, cfg.APIToken, cfg.APITimeout, nil)
	if err != nil {
		log.Fatalf("api: %v", err)
	}
	client, err := dashboard.NewClient(api, store, dashboard.Options{
		Logger:    clog,
		Hooks:     hooks,
		TTLs:      ttls,
		Codec:     cfg.Codec,
		MaxDecode: cfg.MaxDecode,
	})
	if err != nil {
		log.Fatalf("client: %v", err)
	}

	code := run(ctx, client, *watch, *flow)

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Close(closeCtx); err != nil {
		log.WithError(err).Warn("close store")
	}
	st := store.Stats()
	log.WithFields(log.Fields{
		"hits":     st.Hits,
		"misses":   st.Misses,
		"fetches":  st.Fetches,
		"shared":   st.Shared,
		"failures": st.FetchErrors,
	}).Info("sync finished")
	if code != 0 {
		os.Exit(code)
	}
}

// run returns the process exit code. Read failures are reported and the pass
// continues; a failed toggle is reported after rollback.
func run(ctx context.Context, c *dashboard.Client, watch string, refreshFlow bool) int {
	code := 0

	if sum, err := c.Summary(ctx); err != nil {
		log.WithError(err).Warn("summary unavailable")
		code = 1
	} else {
		log.WithFields(log.Fields{"equity": sum.Equity, "positions": sum.Positions}).Info("summary")
	}

	flags, err := c.Flags(ctx)
	if err != nil {
		log.WithError(err).Warn("feature flags unavailable; using defaults")
	}
	log.WithField("flags", len(flags)).Info("feature flags")

	items, err := c.Watchlist(ctx)
	if err != nil {
		log.WithError(err).Warn("watchlist unavailable")
		code = 1
	} else {
		log.WithField("symbols", len(items)).Info("watchlist")
	}

	if refreshFlow {
		if err := c.RefreshFlow(ctx); err != nil {
			log.WithError(err).Error("refresh flow")
			code = 1
		}
	}

	if watch != "" {
		v, err := c.ToggleWatched(ctx, watch)
		if err != nil {
			log.WithError(err).WithField("symbol", watch).Error("toggle watched rolled back")
			return 1
		}
		log.WithFields(log.Fields{"symbol": watch, "watched": v}).Info("toggled")
	}
	return code
}
