package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bicyclebluebook/catalog-sync/internal/catalog"
	"github.com/bicyclebluebook/catalog-sync/internal/metrics"
)

// Params are the operator-supplied run parameters.
type Params struct {
	FromYear int
	ToYear   int
	// Force discards the loaded skip set so every bicycle is reconciled
	// regardless of ledger history.
	Force bool
}

// Summary reports what a completed run did.
type Summary struct {
	Total   int
	Skipped int
	Synced  int
	Failed  int
}

// Extractor assembles the full filtered bicycle set.
type Extractor interface {
	FetchAll(ctx context.Context, filter catalog.Filter) ([]catalog.Bicycle, error)
}

// LedgerStore reads the resume filter and persists the run outcome.
type LedgerStore interface {
	LoadSkipSet() map[int64]struct{}
	Persist(syncedIDs []int64, failed []catalog.Bicycle) error
}

// Orchestrator wires extraction, the skip-set filter, reconciliation, and
// ledger persistence into one run.
type Orchestrator struct {
	extractor  Extractor
	reconciler *Reconciler
	ledger     LedgerStore
	logger     *zap.Logger
}

// NewOrchestrator constructs an Orchestrator. A nil logger is replaced with a
// nop.
func NewOrchestrator(extractor Extractor, reconciler *Reconciler, ledger LedgerStore, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		extractor:  extractor,
		reconciler: reconciler,
		ledger:     ledger,
		logger:     logger,
	}
}

// Run executes one complete sync run. Extraction or ledger persistence
// failure aborts the run without writing a ledger, leaving the prior ledger
// valid for the next attempt. Per-item reconciliation failures end up in the
// failure artifact, not in the returned error.
func (o *Orchestrator) Run(ctx context.Context, params Params) (Summary, error) {
	started := time.Now()

	skip := o.ledger.LoadSkipSet()
	if params.Force {
		o.logger.Info("force resync enabled, discarding skip set",
			zap.Int("discarded", len(skip)))
		skip = map[int64]struct{}{}
	}
	o.logger.Info("starting sync run",
		zap.Int("from_year", params.FromYear),
		zap.Int("to_year", params.ToYear),
		zap.Int("skip_set", len(skip)),
	)

	bicycles, err := o.extractor.FetchAll(ctx, catalog.Filter{
		FromYear: params.FromYear,
		ToYear:   params.ToYear,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("extract catalog: %w", err)
	}

	outcomes := o.reconciler.Reconcile(ctx, bicycles, skip)

	// A canceled context surfaces as per-item failures above; persisting that
	// would overwrite the prior ledger with a mass-failure snapshot. An
	// interrupt aborts the run instead, leaving the prior ledger intact.
	if err := ctx.Err(); err != nil {
		return Summary{}, fmt.Errorf("run interrupted: %w", err)
	}

	summary := Summary{Total: len(outcomes)}
	syncedIDs := make([]int64, 0, len(outcomes))
	failed := make([]catalog.Bicycle, 0)
	for _, out := range outcomes {
		if _, ok := skip[out.Bicycle.ID]; ok {
			summary.Skipped++
		}
		if out.Synced {
			summary.Synced++
			syncedIDs = append(syncedIDs, out.Bicycle.ID)
		} else {
			summary.Failed++
			failed = append(failed, out.Bicycle)
		}
	}

	if err := o.ledger.Persist(syncedIDs, failed); err != nil {
		return Summary{}, fmt.Errorf("persist ledger: %w", err)
	}

	metrics.RunCompleted(time.Since(started))
	o.logger.Info("sync run complete",
		zap.Int("total", summary.Total),
		zap.Int("skipped", summary.Skipped),
		zap.Int("synced", summary.Synced),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", time.Since(started)),
	)
	return summary, nil
}
