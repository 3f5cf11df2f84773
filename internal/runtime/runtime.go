// Package runtime owns every wired component (cache, stores, handlers,
// router, checkpoint, reorg) and drives backfill to completion before
// handing off to the realtime subscription, both routing through the same
// shared router, the way geth-24-monitor polls a head and geth-17-indexer
// persists decoded logs, generalized here into one long-running service
// with reorg protection and a background retention task running
// concurrently with both.
package runtime

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ghostnet/indexer/internal/checkpoint"
	"github.com/ghostnet/indexer/internal/config"
	"github.com/ghostnet/indexer/internal/errs"
	"github.com/ghostnet/indexer/internal/ports"
	"github.com/ghostnet/indexer/internal/primitives"
	"github.com/ghostnet/indexer/internal/reorg"
	"github.com/ghostnet/indexer/internal/router"
	"github.com/ghostnet/indexer/internal/rpc/cursor"
	"github.com/ghostnet/indexer/internal/rpc/subscription"
)

// Metrics is the Prometheus surface §7 names: current block, lag,
// throughput, cache hit rate, rate-limiter rejections, and reorg stats.
type Metrics struct {
	CurrentBlock       prometheus.Gauge
	Lag                prometheus.Gauge
	BlocksPerSecond    prometheus.Gauge
	EventsPerSecond    prometheus.Counter
	CacheHitRate       prometheus.Gauge
	RateLimitRejected  prometheus.Counter
	ReorgCount         prometheus.Counter
	ReorgDepth         prometheus.Histogram
}

// NewMetrics registers the metrics surface on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CurrentBlock:      prometheus.NewGauge(prometheus.GaugeOpts{Name: "indexer_current_block", Help: "last block successfully processed"}),
		Lag:               prometheus.NewGauge(prometheus.GaugeOpts{Name: "indexer_block_lag", Help: "blocks behind chain head"}),
		BlocksPerSecond:   prometheus.NewGauge(prometheus.GaugeOpts{Name: "indexer_blocks_per_second", Help: "recent block processing rate"}),
		EventsPerSecond:   prometheus.NewCounter(prometheus.CounterOpts{Name: "indexer_events_total", Help: "total events routed"}),
		CacheHitRate:      prometheus.NewGauge(prometheus.GaugeOpts{Name: "indexer_cache_hit_rate", Help: "cache hit ratio"}),
		RateLimitRejected: prometheus.NewCounter(prometheus.CounterOpts{Name: "indexer_rate_limit_rejected_total", Help: "rate-limited calls rejected"}),
		ReorgCount:        prometheus.NewCounter(prometheus.CounterOpts{Name: "indexer_reorg_total", Help: "detected reorganizations"}),
		ReorgDepth:        prometheus.NewHistogram(prometheus.HistogramOpts{Name: "indexer_reorg_depth", Help: "reorg depth distribution", Buckets: prometheus.LinearBuckets(1, 16, 16)}),
	}
	reg.MustRegister(m.CurrentBlock, m.Lag, m.BlocksPerSecond, m.EventsPerSecond, m.CacheHitRate, m.RateLimitRejected, m.ReorgCount, m.ReorgDepth)
	return m
}

// Deps is everything Runtime needs, constructed by cmd/indexer/main.go.
type Deps struct {
	Config     config.Config
	EthClient  *ethclient.Client
	RawRPC     *rpc.Client
	State      ports.IndexerStateStore
	Cache      ports.Cache
	Router     *router.Router
	Checkpoint *checkpoint.Manager
	Reorg      *reorg.Handler
	Metrics    *Metrics
	Log        *logrus.Entry
}

// Runtime drives the backfill loop, the realtime subscription, and
// background retention pruning.
type Runtime struct {
	deps         Deps
	cursorClient *cursor.Client
	addresses    []common.Address
	log          *logrus.Entry

	blocksSinceRetention int
}

// New constructs a Runtime from deps.
func New(deps Deps) *Runtime {
	cursorClient := cursor.New(deps.RawRPC, deps.Config.MaxCursorBatches, deps.Config.MaxLogs, deps.Log)
	return &Runtime{
		deps:         deps,
		cursorClient: cursorClient,
		addresses:    contractAddresses(deps.Config),
		log:          deps.Log,
	}
}

func contractAddresses(cfg config.Config) []common.Address {
	var out []common.Address
	for _, hex := range []string{
		cfg.GhostCoreAddress, cfg.TraceScanAddress, cfg.DeadPoolAddress,
		cfg.DataTokenAddress, cfg.FeeRouterAddress, cfg.RewardsDistributorAddress,
	} {
		if hex == "" {
			continue
		}
		out = append(out, common.HexToAddress(hex))
	}
	return out
}

// Run starts backfill, then hands off to the realtime subscription once
// caught up, with background retention pruning running concurrently.
// Returns only on unrecoverable error or context cancellation.
func (r *Runtime) Run(ctx context.Context) error {
	start, err := r.deps.Checkpoint.Start(ctx)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "runtime: resolve start block", err)
	}

	pruneStop := r.startRetentionCron(ctx)
	defer pruneStop()

	if err := r.backfill(ctx, start); err != nil {
		return err
	}

	proc := subscription.New(r.deps.Config.RPCWSURL, r.addresses, &headerTimeFetcher{client: r.deps.EthClient}, r.routeLog, r.log)
	return proc.Run(ctx)
}

// backfill walks from start to the chain head in config.BatchSize chunks,
// checking each block that carries matching logs for a reorg before routing
// them. Blocks without matching logs are not fetched, reorg-checked,
// hash-recorded or checkpointed.
func (r *Runtime) backfill(ctx context.Context, start primitives.BlockNumber) error {
	head, err := r.deps.EthClient.BlockNumber(ctx)
	if err != nil {
		return errs.Wrap(errs.KindRPC, "runtime: fetch chain head", err)
	}
	current := start
	batchSize := primitives.BlockNumber(uint64(r.deps.Config.BatchSize))
	if batchSize == 0 {
		batchSize = 1000
	}

	for current.Uint64() <= head {
		// Per-client RPC budget shares the cache's sliding-window buckets.
		if limit := r.deps.Config.RateLimitPerMinute; limit > 0 && !r.deps.Cache.CheckRateLimit("rpc:backfill", limit, 60) {
			if r.deps.Metrics != nil {
				r.deps.Metrics.RateLimitRejected.Inc()
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		to := current + batchSize
		if to.Uint64() > head {
			to = primitives.BlockNumber(head)
		}

		if err := r.processBatch(ctx, current, to); err != nil {
			return err
		}
		current = to.Next()

		newHead, err := r.deps.EthClient.BlockNumber(ctx)
		if err == nil {
			head = newHead
		}
		if r.deps.Metrics != nil && head >= current.Uint64() {
			r.deps.Metrics.Lag.Set(float64(head - current.Uint64()))
		}
	}
	return nil
}

func (r *Runtime) processBatch(ctx context.Context, from, to primitives.BlockNumber) error {
	logs, _, err := r.cursorClient.FetchRange(ctx, cursor.Filter{FromBlock: from, ToBlock: to, Addresses: r.addresses})
	if err != nil {
		return err
	}

	byBlock := make(map[uint64][]types.Log)
	order := make([]uint64, 0)
	for _, lg := range logs {
		if _, seen := byBlock[lg.BlockNumber]; !seen {
			order = append(order, lg.BlockNumber)
		}
		byBlock[lg.BlockNumber] = append(byBlock[lg.BlockNumber], lg)
	}

	for _, blockNum := range order {
		if err := r.processBlock(ctx, primitives.BlockNumber(blockNum), byBlock[blockNum]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) processBlock(ctx context.Context, blockNum primitives.BlockNumber, logs []types.Log) error {
	header, err := r.deps.EthClient.HeaderByNumber(ctx, big.NewInt(int64(blockNum.Uint64())))
	if err != nil {
		return errs.Wrap(errs.KindRPC, "runtime: fetch block header", err)
	}

	outcome, err := r.deps.Reorg.Check(ctx, blockNum, header.ParentHash)
	if err != nil {
		return err
	}
	if outcome.Result == reorg.ReorgDetected {
		if r.deps.Metrics != nil {
			r.deps.Metrics.ReorgCount.Inc()
			r.deps.Metrics.ReorgDepth.Observe(float64(outcome.Depth))
		}
		if err := r.deps.Reorg.Rollback(ctx, outcome.ForkPoint); err != nil {
			return err
		}
		forkHeader, err := r.deps.EthClient.HeaderByNumber(ctx, big.NewInt(int64(outcome.ForkPoint.Uint64())))
		if err != nil {
			return errs.Wrap(errs.KindRPC, "runtime: fetch fork-point header", err)
		}
		if err := r.deps.Checkpoint.ResetTo(ctx, outcome.ForkPoint, forkHeader.Hash()); err != nil {
			return err
		}
		return nil
	}

	blockHash := header.Hash()
	for _, lg := range logs {
		if _, err := r.deps.Router.Route(ctx, lg, header.Time); err != nil {
			return err
		}
		if r.deps.Metrics != nil {
			r.deps.Metrics.EventsPerSecond.Inc()
		}
	}

	if err := r.deps.State.InsertBlockHash(ctx, blockNum, blockHash, header.ParentHash, time.Unix(int64(header.Time), 0)); err != nil {
		return err
	}
	if err := r.deps.Checkpoint.Update(ctx, blockNum, blockHash); err != nil {
		return err
	}
	if r.deps.Metrics != nil {
		r.deps.Metrics.CurrentBlock.Set(float64(blockNum.Uint64()))
	}

	r.blocksSinceRetention++
	if r.blocksSinceRetention >= 100 {
		r.blocksSinceRetention = 0
		if err := r.deps.Reorg.Retain(ctx, r.deps.Config.BlockRetention); err != nil {
			r.log.WithError(err).Warn("runtime: retention prune failed")
		}
		if r.deps.Metrics != nil {
			stats := r.deps.Cache.Stats()
			if total := stats.Hits + stats.Misses; total > 0 {
				r.deps.Metrics.CacheHitRate.Set(float64(stats.Hits) / float64(total))
			}
		}
	}
	return nil
}

// routeLog adapts router.Router.Route to subscription.RouterFunc, discarding
// the Outcome and surfacing only the error.
func (r *Runtime) routeLog(ctx context.Context, log types.Log, blockTime uint64) error {
	_, err := r.deps.Router.Route(ctx, log, blockTime)
	return err
}

// startRetentionCron schedules a periodic block-hash prune as a defense in
// depth alongside the every-100-blocks prune in processBlock, covering
// deployments where backfill is slow and 100 blocks take a long time to
// accumulate.
func (r *Runtime) startRetentionCron(ctx context.Context) func() {
	c := cron.New()
	_, err := c.AddFunc("@every 10m", func() {
		if err := r.deps.Reorg.Retain(ctx, r.deps.Config.BlockRetention); err != nil {
			r.log.WithError(err).Warn("runtime: scheduled retention prune failed")
		}
		r.deps.Cache.CleanupRateLimits(3600)
	})
	if err != nil {
		r.log.WithError(err).Warn("runtime: failed to schedule retention cron")
		return func() {}
	}
	c.Start()
	return func() { <-c.Stop().Done() }
}

// headerTimeFetcher adapts ethclient.Client to subscription.BlockTimeFetcher.
type headerTimeFetcher struct {
	client *ethclient.Client
}

func (f *headerTimeFetcher) BlockTimeAt(ctx context.Context, block primitives.BlockNumber) (uint64, error) {
	header, err := f.client.HeaderByNumber(ctx, big.NewInt(int64(block.Uint64())))
	if err != nil {
		return 0, err
	}
	return header.Time, nil
}

// ethHashFetcher adapts ethclient.Client to reorg.ChainHashFetcher.
type ethHashFetcher struct {
	client *ethclient.Client
}

func (f *ethHashFetcher) BlockHashAt(ctx context.Context, block primitives.BlockNumber) (hash, parent [32]byte, err error) {
	header, err := f.client.HeaderByNumber(ctx, big.NewInt(int64(block.Uint64())))
	if err != nil {
		return hash, parent, err
	}
	return header.Hash(), header.ParentHash, nil
}

// NewChainHashFetcher constructs the reorg.ChainHashFetcher backing a
// Runtime's Reorg handler.
func NewChainHashFetcher(client *ethclient.Client) reorg.ChainHashFetcher {
	return &ethHashFetcher{client: client}
}
