package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bicyclebluebook/catalog-sync/internal/catalog"
)

type fakeExtractor struct {
	bicycles   []catalog.Bicycle
	err        error
	lastFilter catalog.Filter
}

func (f *fakeExtractor) FetchAll(_ context.Context, filter catalog.Filter) ([]catalog.Bicycle, error) {
	f.lastFilter = filter
	return f.bicycles, f.err
}

type fakeLedger struct {
	skip       map[int64]struct{}
	persistErr error

	persisted       bool
	persistedIDs    []int64
	persistedFailed []catalog.Bicycle
}

func (f *fakeLedger) LoadSkipSet() map[int64]struct{} {
	if f.skip == nil {
		return map[int64]struct{}{}
	}
	return f.skip
}

func (f *fakeLedger) Persist(ids []int64, failed []catalog.Bicycle) error {
	if f.persistErr != nil {
		return f.persistErr
	}
	f.persisted = true
	f.persistedIDs = ids
	f.persistedFailed = failed
	return nil
}

func newTestOrchestrator(extractor Extractor, ledger LedgerStore, docs *fakeDocstore, submitter *fakeSubmitter) *Orchestrator {
	return NewOrchestrator(extractor, NewReconciler(docs, submitter, nil), ledger, nil)
}

func TestRunPersistsCompleteLedger(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{bicycles: makeBicycles(6)}
	ledger := &fakeLedger{skip: map[int64]struct{}{1: {}, 2: {}}}
	submitter := &fakeSubmitter{failIDs: map[int64]bool{5: true}}
	o := newTestOrchestrator(extractor, ledger, &fakeDocstore{}, submitter)

	summary, err := o.Run(context.Background(), Params{FromYear: 2020, ToYear: 2024})
	require.NoError(t, err)

	require.Equal(t, Summary{Total: 6, Skipped: 2, Synced: 5, Failed: 1}, summary)
	require.Equal(t, catalog.Filter{FromYear: 2020, ToYear: 2024}, extractor.lastFilter)

	require.True(t, ledger.persisted)
	require.ElementsMatch(t, []int64{1, 2, 3, 4, 6}, ledger.persistedIDs,
		"persisted successes must include skip-carried ids")
	require.Len(t, ledger.persistedFailed, 1)
	require.Equal(t, int64(5), ledger.persistedFailed[0].ID)

	// success list plus failure list must account for exactly the input set
	accounted := map[int64]bool{}
	for _, id := range ledger.persistedIDs {
		require.False(t, accounted[id])
		accounted[id] = true
	}
	for _, b := range ledger.persistedFailed {
		require.False(t, accounted[b.ID])
		accounted[b.ID] = true
	}
	require.Len(t, accounted, 6)
}

func TestRunForceDiscardsSkipSet(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{bicycles: makeBicycles(3)}
	ledger := &fakeLedger{skip: map[int64]struct{}{1: {}, 2: {}, 3: {}}}
	submitter := &fakeSubmitter{}
	o := newTestOrchestrator(extractor, ledger, &fakeDocstore{}, submitter)

	summary, err := o.Run(context.Background(), Params{Force: true})
	require.NoError(t, err)

	require.Equal(t, 3, submitter.submitCount(), "force must reconcile everything")
	require.Zero(t, summary.Skipped)
}

func TestRunWithoutForceHonorsSkipSet(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{bicycles: makeBicycles(3)}
	ledger := &fakeLedger{skip: map[int64]struct{}{1: {}, 2: {}, 3: {}}}
	submitter := &fakeSubmitter{}
	o := newTestOrchestrator(extractor, ledger, &fakeDocstore{}, submitter)

	summary, err := o.Run(context.Background(), Params{})
	require.NoError(t, err)

	require.Zero(t, submitter.submitCount())
	require.Equal(t, 3, summary.Skipped)
}

func TestRunExtractionFailureDoesNotPersist(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{err: errors.New("count query failed")}
	ledger := &fakeLedger{}
	o := newTestOrchestrator(extractor, ledger, &fakeDocstore{}, &fakeSubmitter{})

	_, err := o.Run(context.Background(), Params{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "extract catalog")
	require.False(t, ledger.persisted, "an aborted run must leave the prior ledger intact")
}

func TestRunCanceledContextDoesNotPersist(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	extractor := &fakeExtractor{bicycles: makeBicycles(3)}
	ledger := &fakeLedger{}
	o := newTestOrchestrator(extractor, ledger, &fakeDocstore{}, &fakeSubmitter{})

	_, err := o.Run(ctx, Params{})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, ledger.persisted, "an interrupted run must leave the prior ledger intact")
}

func TestRunPersistFailureIsFatal(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{bicycles: makeBicycles(1)}
	ledger := &fakeLedger{persistErr: errors.New("disk full")}
	o := newTestOrchestrator(extractor, ledger, &fakeDocstore{}, &fakeSubmitter{})

	_, err := o.Run(context.Background(), Params{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "persist ledger")
}

func TestRunEmptyCatalogPersistsEmptyLedger(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{bicycles: []catalog.Bicycle{}}
	ledger := &fakeLedger{}
	o := newTestOrchestrator(extractor, ledger, &fakeDocstore{}, &fakeSubmitter{})

	summary, err := o.Run(context.Background(), Params{})
	require.NoError(t, err)
	require.Equal(t, Summary{}, summary)
	require.True(t, ledger.persisted)
	require.Empty(t, ledger.persistedIDs)
	require.Empty(t, ledger.persistedFailed)
}
