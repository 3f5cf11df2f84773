package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ghostnet/indexer/internal/entities"
	"github.com/ghostnet/indexer/internal/errs"
	"github.com/ghostnet/indexer/internal/events"
	"github.com/ghostnet/indexer/internal/ports"
)

// ScanHandler owns Scan rows across their two-phase (execute/finalize)
// lifecycle. It also holds StatsStore so ScanFinalized can eagerly
// recompute the global-stats row instead of waiting for the next
// read-through — carried over from original_source's per-scan aggregation
// caching.
type ScanHandler struct {
	store ports.ScanStore
	stats ports.StatsStore
	cache ports.Cache
	log   *logrus.Entry
}

// NewScanHandler constructs a ScanHandler.
func NewScanHandler(store ports.ScanStore, stats ports.StatsStore, cache ports.Cache, log *logrus.Entry) *ScanHandler {
	return &ScanHandler{store: store, stats: stats, cache: cache, log: log}
}

func unixToTime(sec uint64) time.Time { return time.Unix(int64(sec), 0).UTC() }

// HandleScanExecuted creates the Phase 1 scan record, idempotent on the
// on-chain scan id.
func (h *ScanHandler) HandleScanExecuted(ctx context.Context, ev events.ScanExecuted) error {
	existing, err := h.store.GetScanByID(ctx, ev.ScanID)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "scan_executed: lookup existing scan", err)
	}
	if existing != nil {
		h.log.WithField("existing_id", existing.ID).Warn("scan already exists, skipping")
		return nil
	}

	sc := entities.Scan{
		ID:         uuid.New(),
		ScanID:     ev.ScanID,
		Level:      ev.Level,
		Seed:       ev.Seed,
		ExecutedAt: unixToTime(ev.ExecutedAt),
	}
	if err := h.store.SaveScan(ctx, sc); err != nil {
		return errs.Wrap(errs.KindDatabase, "scan_executed: save scan", err)
	}

	h.cache.InvalidateLevel(ev.Level)
	h.log.WithFields(logrus.Fields{"scan_uuid": sc.ID, "level": ev.Level}).Info("scan executed (phase 1)")
	return nil
}

// HandleDeathsSubmitted is informational only — no death rows are created
// from submitted batches; DeathsProcessed is aggregate-only as well, and only
// SystemResetTriggered writes per-address death rows.
func (h *ScanHandler) HandleDeathsSubmitted(ctx context.Context, ev events.DeathsSubmitted) error {
	h.log.WithFields(logrus.Fields{
		"level":       ev.Level,
		"scan_id":     ev.ScanID,
		"batch_count": ev.Count,
		"batch_total": ev.TotalDead.String(),
		"submitter":   ev.Submitter.String(),
	}).Debug("deaths batch submitted")

	h.cache.InvalidateLevel(ev.Level)
	return nil
}

// HandleScanFinalized populates the Phase 2 finalize fields. If the scan was
// never seen at Phase 1, a partial record is created so downstream foreign
// keys still resolve.
func (h *ScanHandler) HandleScanFinalized(ctx context.Context, ev events.ScanFinalized) error {
	finalizedAt := unixToTime(ev.FinalizedAt)

	existing, err := h.store.GetScanByID(ctx, ev.ScanID)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "scan_finalized: lookup scan", err)
	}

	if existing == nil {
		h.log.WithField("scan_id", ev.ScanID).Warn("ScanFinalized received but no ScanExecuted found, creating incomplete record")
		deathCount := uint32(ev.DeathCount)
		totalDead := ev.TotalDead
		sc := entities.Scan{
			ID:          uuid.New(),
			ScanID:      ev.ScanID,
			Level:       ev.Level,
			Seed:        "unknown",
			ExecutedAt:  finalizedAt,
			FinalizedAt: &finalizedAt,
			DeathCount:  &deathCount,
			TotalDead:   &totalDead,
		}
		if err := h.store.SaveScan(ctx, sc); err != nil {
			return errs.Wrap(errs.KindDatabase, "scan_finalized: save incomplete scan", err)
		}
		h.cache.InvalidateLevel(ev.Level)
		h.log.WithFields(logrus.Fields{"scan_uuid": sc.ID, "level": ev.Level, "death_count": deathCount}).Info("incomplete scan created from finalization")
		return nil
	}

	if existing.IsFinalized() {
		h.log.WithField("scan_id", ev.ScanID).Warn("scan already finalized, skipping")
		return nil
	}

	// Distribution fields are written as zero here and no handler fills them
	// in afterwards: CascadeDistributed (death handler) carries no scan id and
	// only invalidates level caches.
	data := entities.ScanFinalizationData{
		FinalizedAt: finalizedAt,
		DeathCount:  uint32(ev.DeathCount),
		TotalDead:   ev.TotalDead,
	}
	if err := h.store.FinalizeScan(ctx, ev.ScanID, data); err != nil {
		return errs.Wrap(errs.KindDatabase, "scan_finalized: finalize scan", err)
	}

	h.cache.InvalidateLevel(ev.Level)
	h.refreshGlobalStats(ctx)

	h.log.WithFields(logrus.Fields{
		"scan_id":     ev.ScanID,
		"level":       ev.Level,
		"death_count": ev.DeathCount,
		"total_dead":  ev.TotalDead.String(),
	}).Info("scan finalized (phase 2)")
	return nil
}

// refreshGlobalStats eagerly recomputes the global-stats row after a scan
// settles so the next read-through is cheap, rather than waiting for it to
// go stale first.
func (h *ScanHandler) refreshGlobalStats(ctx context.Context) {
	if err := h.stats.RefreshGlobalStats(ctx); err != nil {
		h.log.WithError(err).Warn("failed to eagerly refresh global stats after scan finalization")
	}
}
