package reconcile

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/bicyclebluebook/catalog-sync/internal/catalog"
	"github.com/bicyclebluebook/catalog-sync/internal/docstore"
	"github.com/bicyclebluebook/catalog-sync/internal/metrics"
)

// Submitter posts one bicycle to the enrichment service.
type Submitter interface {
	Submit(ctx context.Context, b catalog.Bicycle) error
}

// Reconciler produces a per-item outcome for every bicycle not already
// synchronized in a prior run.
type Reconciler struct {
	docs   docstore.Store
	enrich Submitter
	logger *zap.Logger
}

// NewReconciler constructs a Reconciler. A nil logger is replaced with a nop.
func NewReconciler(docs docstore.Store, enrich Submitter, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{docs: docs, enrich: enrich, logger: logger}
}

// Reconcile runs one goroutine per non-skipped bicycle. Items in the skip set
// short-circuit to success with no network calls. Per-item work is fully
// isolated: one item's failure never blocks or aborts another's. The number
// of concurrent items is unbounded here; each item is a pair of network calls
// and latency dominates, so parallelizing them is the entire point.
//
// The returned slice has exactly one outcome per input bicycle.
func (r *Reconciler) Reconcile(ctx context.Context, bicycles []catalog.Bicycle, skip map[int64]struct{}) []Outcome {
	outcomes := make([]Outcome, len(bicycles))

	var wg sync.WaitGroup
	for i, b := range bicycles {
		if _, ok := skip[b.ID]; ok {
			outcomes[i] = Outcome{Bicycle: b, Synced: true}
			metrics.BicycleReconciled(metrics.OutcomeSkipped)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			// each goroutine writes only its own slot
			outcomes[i] = Outcome{Bicycle: b, Synced: r.reconcileOne(ctx, b)}
		}()
	}
	wg.Wait()
	return outcomes
}

func (r *Reconciler) reconcileOne(ctx context.Context, b catalog.Bicycle) bool {
	key := docstore.ListingKey{Make: b.Brand, Model: b.Model, Year: b.Year}
	if err := r.docs.DeleteListings(ctx, key); err != nil {
		r.logger.Warn("stale listing cleanup failed",
			zap.Int64("bicycle_id", b.ID), zap.Error(err))
		metrics.BicycleReconciled(metrics.OutcomeFailed)
		return false
	}
	if err := r.enrich.Submit(ctx, b); err != nil {
		r.logger.Warn("enrichment submission failed",
			zap.Int64("bicycle_id", b.ID), zap.Error(err))
		metrics.BicycleReconciled(metrics.OutcomeFailed)
		return false
	}
	metrics.BicycleReconciled(metrics.OutcomeSynced)
	return true
}
