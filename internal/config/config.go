// Package config assembles the runtime's Config from environment variables,
// with an optional local .env file for development, following the teacher's
// flag-plus-env pattern (geth-17-indexer, geth-24-monitor) generalized to a
// single struct the runtime consumes rather than owns.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ghostnet/indexer/internal/checkpoint"
	"github.com/ghostnet/indexer/internal/primitives"
)

// Config is every environment-sourced knob the runtime and its components
// consume. Nothing here is validated beyond type parsing; out-of-range
// values surface as ordinary startup errors once components reject them.
type Config struct {
	RPCHTTPURL string
	RPCWSURL   string
	ChainID    uint64

	PollInterval int // seconds between backfill polls
	BatchSize    int // blocks per backfill batch

	GhostCoreAddress          string
	TraceScanAddress          string
	DeadPoolAddress           string
	DataTokenAddress          string
	FeeRouterAddress          string
	RewardsDistributorAddress string

	DatabaseURL     string
	DBMaxOpenConns  int
	DBMaxIdleConns  int

	CacheTTLSeconds      int
	PositionCacheSize    int
	RateLimitPerMinute   int

	ExternalBrokerURL string

	RecoveryMode   checkpoint.Mode
	TargetBlock    primitives.BlockNumber
	MinBlock       primitives.BlockNumber
	MaxReorgDepth  uint64
	BlockRetention primitives.BlockNumber

	MaxCursorBatches int
	MaxLogs          int

	MaxRetries int
	RetryDelaySeconds int
}

// Load reads a local .env file if present (missing is not an error, the way
// godotenv.Load is normally used for optional dev overrides) and assembles a
// Config from the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	mode, err := parseRecoveryMode(getEnv("RECOVERY_MODE", "resume"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCHTTPURL: getEnv("RPC_HTTP_URL", ""),
		RPCWSURL:   getEnv("RPC_WS_URL", ""),
		ChainID:    getEnvUint64("CHAIN_ID", 1),

		PollInterval: getEnvInt("POLL_INTERVAL_SECONDS", 2),
		BatchSize:    getEnvInt("BATCH_SIZE", 1000),

		GhostCoreAddress:          getEnv("GHOSTCORE_ADDRESS", ""),
		TraceScanAddress:          getEnv("TRACESCAN_ADDRESS", ""),
		DeadPoolAddress:           getEnv("DEADPOOL_ADDRESS", ""),
		DataTokenAddress:          getEnv("DATATOKEN_ADDRESS", ""),
		FeeRouterAddress:          getEnv("FEEROUTER_ADDRESS", ""),
		RewardsDistributorAddress: getEnv("REWARDSDISTRIBUTOR_ADDRESS", ""),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),

		CacheTTLSeconds:    getEnvInt("CACHE_TTL_SECONDS", 300),
		PositionCacheSize:  getEnvInt("POSITION_CACHE_SIZE", 10_000),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 600),

		ExternalBrokerURL: getEnv("EXTERNAL_BROKER_URL", ""),

		RecoveryMode:   mode,
		TargetBlock:    primitives.BlockNumber(getEnvUint64("TARGET_BLOCK", 0)),
		MinBlock:       primitives.BlockNumber(getEnvUint64("MIN_BLOCK", 0)),
		MaxReorgDepth:  getEnvUint64("MAX_REORG_DEPTH", 256),
		BlockRetention: primitives.BlockNumber(getEnvUint64("BLOCK_RETENTION", 512)),

		MaxCursorBatches: getEnvInt("MAX_CURSOR_BATCHES", 100),
		MaxLogs:          getEnvInt("MAX_LOGS", 0),

		MaxRetries:        getEnvInt("MAX_RETRIES", 5),
		RetryDelaySeconds: getEnvInt("RETRY_DELAY_SECONDS", 2),
	}
	return cfg, nil
}

func parseRecoveryMode(s string) (checkpoint.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "resume", "":
		return checkpoint.Resume, nil
	case "reindex-from":
		return checkpoint.ReindexFrom, nil
	case "genesis":
		return checkpoint.Genesis, nil
	case "start-from":
		return checkpoint.StartFrom, nil
	default:
		return 0, fmt.Errorf("config: unknown RECOVERY_MODE %q", s)
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvUint64(key string, fallback uint64) uint64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
