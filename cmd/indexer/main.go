// Command indexer wires configuration, stores, cache, handlers, router, and
// runtime together and runs the event indexer until a shutdown signal or a
// terminal error, the same dial-then-run shape as every teacher main.go
// (ethclient.DialContext -> do the thing -> exit) generalized into a
// long-running service.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ghostnet/indexer/internal/cache"
	"github.com/ghostnet/indexer/internal/checkpoint"
	"github.com/ghostnet/indexer/internal/config"
	"github.com/ghostnet/indexer/internal/handlers"
	"github.com/ghostnet/indexer/internal/ports"
	"github.com/ghostnet/indexer/internal/reorg"
	"github.com/ghostnet/indexer/internal/router"
	"github.com/ghostnet/indexer/internal/runtime"
	"github.com/ghostnet/indexer/internal/store/postgres"
	"github.com/ghostnet/indexer/internal/streaming"
)

func main() {
	metricsAddr := flag.String("metrics-addr", os.Getenv("METRICS_ADDR"), "address to serve /metrics on, empty disables")
	startupTimeout := flag.Duration("startup-timeout", 30*time.Second, "timeout for dialing RPC/DB on startup")
	flag.Parse()

	log := logrus.NewEntry(logrus.StandardLogger())
	logrus.SetLevel(logrus.InfoLevel)

	if err := run(log, *metricsAddr, *startupTimeout); err != nil {
		log.WithError(err).Error("indexer exited with error")
		os.Exit(1)
	}
}

func run(log *logrus.Entry, metricsAddr string, startupTimeout time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startupCtx, cancelStartup := context.WithTimeout(ctx, startupTimeout)
	defer cancelStartup()

	ethClient, err := ethclient.DialContext(startupCtx, cfg.RPCHTTPURL)
	if err != nil {
		return err
	}
	defer ethClient.Close()

	rawRPC, err := rpc.DialContext(startupCtx, cfg.RPCHTTPURL)
	if err != nil {
		return err
	}
	defer rawRPC.Close()

	store, err := postgres.Open(startupCtx, cfg.DatabaseURL, log.WithField("component", "store"))
	if err != nil {
		return err
	}
	defer store.Close()
	store.SetPoolLimits(cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)

	indexerCache := cache.New()

	var publisher ports.EventPublisher = ports.NoopPublisher{}
	if cfg.ExternalBrokerURL != "" {
		publisher = streaming.NewLogPublisher()
	}

	position := handlers.NewPositionHandler(store, indexerCache, log.WithField("component", "position_handler"))
	scan := handlers.NewScanHandler(store, store, indexerCache, log.WithField("component", "scan_handler"))
	death := handlers.NewDeathHandler(store, store, indexerCache, log.WithField("component", "death_handler"))
	market := handlers.NewMarketHandler(store, indexerCache, log.WithField("component", "market_handler"))
	token := handlers.NewTokenHandler(store, publisher, log.WithField("component", "token_handler"))
	fee := handlers.NewFeeHandler(store, publisher, log.WithField("component", "fee_handler"))
	emissions := handlers.NewEmissionsHandler(store, publisher, log.WithField("component", "emissions_handler"))

	r := router.New(position, scan, death, market, token, fee, emissions, log.WithField("component", "router"))

	cp := checkpoint.New(store, checkpoint.Config{
		Mode:        cfg.RecoveryMode,
		TargetBlock: cfg.TargetBlock,
		MinBlock:    cfg.MinBlock,
	}, log.WithField("component", "checkpoint"))

	reorgHandler := reorg.New(store, indexerCache, runtime.NewChainHashFetcher(ethClient), cfg.MaxReorgDepth, log.WithField("component", "reorg"))

	registry := prometheus.NewRegistry()
	metrics := runtime.NewMetrics(registry)
	if metricsAddr != "" {
		go serveMetrics(metricsAddr, registry, log)
	}

	rt := runtime.New(runtime.Deps{
		Config:     cfg,
		EthClient:  ethClient,
		RawRPC:     rawRPC,
		State:      store,
		Cache:      indexerCache,
		Router:     r,
		Checkpoint: cp,
		Reorg:      reorgHandler,
		Metrics:    metrics,
		Log:        log.WithField("component", "runtime"),
	})

	log.Info("indexer starting")
	return rt.Run(ctx)
}

func serveMetrics(addr string, registry *prometheus.Registry, log *logrus.Entry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Warn("metrics server stopped")
	}
}
