package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ghostnet/indexer/internal/checkpoint"
	"github.com/ghostnet/indexer/internal/primitives"
)

func TestParseRecoveryModeRecognizesEveryMode(t *testing.T) {
	cases := map[string]checkpoint.Mode{
		"":            checkpoint.Resume,
		"resume":      checkpoint.Resume,
		"Resume":      checkpoint.Resume,
		"reindex-from": checkpoint.ReindexFrom,
		"genesis":     checkpoint.Genesis,
		"start-from":  checkpoint.StartFrom,
	}
	for input, want := range cases {
		got, err := parseRecoveryMode(input)
		require.NoError(t, err, "input %q", input)
		require.Equal(t, want, got, "input %q", input)
	}
}

func TestParseRecoveryModeRejectsUnknown(t *testing.T) {
	_, err := parseRecoveryMode("not-a-mode")
	require.Error(t, err)
}

func TestLoadUsesDefaultsWhenUnset(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, uint64(1), cfg.ChainID)
	require.Equal(t, 1000, cfg.BatchSize)
	require.Equal(t, checkpoint.Resume, cfg.RecoveryMode)
	require.Equal(t, primitives.BlockNumber(512), cfg.BlockRetention)
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	t.Setenv("CHAIN_ID", "42")
	t.Setenv("BATCH_SIZE", "250")
	t.Setenv("RECOVERY_MODE", "genesis")
	t.Setenv("MAX_REORG_DEPTH", "64")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, uint64(42), cfg.ChainID)
	require.Equal(t, 250, cfg.BatchSize)
	require.Equal(t, checkpoint.Genesis, cfg.RecoveryMode)
	require.Equal(t, uint64(64), cfg.MaxReorgDepth)
}

func TestLoadFallsBackOnUnparsableInt(t *testing.T) {
	t.Setenv("BATCH_SIZE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 1000, cfg.BatchSize)
}
