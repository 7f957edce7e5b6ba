// Command cortexd is the process entry point: it loads configuration, wires
// the provider clients, store, writer and subscription manager together,
// serves the read API, and shuts everything down gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cortexlabs/cortexd/internal/apiserver"
	"github.com/cortexlabs/cortexd/internal/config"
	"github.com/cortexlabs/cortexd/internal/provider/history"
	"github.com/cortexlabs/cortexd/internal/provider/price"
	"github.com/cortexlabs/cortexd/internal/provider/stream"
	"github.com/cortexlabs/cortexd/internal/store"
	"github.com/cortexlabs/cortexd/internal/subscription"
	"github.com/cortexlabs/cortexd/internal/writer"
	"github.com/cortexlabs/cortexd/pkg/logger"
	"github.com/cortexlabs/cortexd/pkg/pricecache"
	"github.com/cortexlabs/cortexd/pkg/shutdown"
	"github.com/cortexlabs/cortexd/pkg/sigchan"
)

func main() {
	configPath := flag.String("config", os.Getenv("CORTEX_CONFIG_FILE"), "path to a config YAML file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		stdlog.Fatalf("cortexd: load config: %v", err)
	}

	if err := logger.Init(logger.Config{Level: cfg.LogLevel, OutputFile: cfg.LogFile}); err != nil {
		stdlog.Fatalf("cortexd: init logger: %v", err)
	}
	log := logger.WithField("component", "main")

	st, err := store.Open(cfg.Database.URL)
	if err != nil {
		log.Fatalf("store open: %v", err)
	}
	defer st.Close()

	priceCache, err := pricecache.Open("data/pricecache.badger", 5*time.Minute)
	if err != nil {
		log.Warnf("price cache unavailable, lookups won't be cached: %v", err)
	}
	defer priceCache.Close()

	historyClient := history.NewClient("https://api.helius.xyz/v0", cfg.Helius.APIKey)
	streamClient := stream.NewClient(cfg.LysLabs.WSURL, cfg.LysLabs.APIKey)
	priceClient := price.NewClient("https://api.jup.ag/price/v2", priceCache)

	if cfg.DemoMode {
		log.Infof("demo mode enabled: conviction queries will use canned Polymarket bets")
	}

	w := writer.New(st)
	manager := subscription.NewManager(historyClient, streamClient, priceClient, w, st)

	srv := apiserver.New(st, manager)
	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("cortexd listening on %s", cfg.Server.Addr())
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("http server error: %v", err)
		}
	}()

	shutdownSignal := sigchan.New(1)
	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-osSignals
		shutdownSignal.Emit()
	}()
	<-shutdownSignal.C()
	log.Infof("shutdown signal received")

	shutdownMgr := shutdown.NewManager()
	shutdownMgr.OnShutdown(func(ctx context.Context, wg *sync.WaitGroup) {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(ctx)
	})
	shutdownMgr.OnShutdown(func(ctx context.Context, wg *sync.WaitGroup) {
		for _, s := range manager.List() {
			manager.Stop(s.Wallet)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	shutdownMgr.Shutdown(ctx)

	log.Infof("cortexd stopped")
}
