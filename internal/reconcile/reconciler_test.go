package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bicyclebluebook/catalog-sync/internal/catalog"
	"github.com/bicyclebluebook/catalog-sync/internal/docstore"
)

type fakeDocstore struct {
	mu         sync.Mutex
	deleted    []docstore.ListingKey
	failModels map[string]bool
}

func (f *fakeDocstore) DeleteListings(_ context.Context, key docstore.ListingKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failModels[key.Model] {
		return errors.New("docstore unavailable")
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeDocstore) Close(context.Context) error { return nil }

func (f *fakeDocstore) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deleted)
}

type fakeSubmitter struct {
	mu        sync.Mutex
	submitted []int64
	failIDs   map[int64]bool
}

func (f *fakeSubmitter) Submit(_ context.Context, b catalog.Bicycle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[b.ID] {
		return errors.New("status 500")
	}
	f.submitted = append(f.submitted, b.ID)
	return nil
}

func (f *fakeSubmitter) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submitted)
}

func makeBicycles(n int) []catalog.Bicycle {
	bicycles := make([]catalog.Bicycle, 0, n)
	for i := 1; i <= n; i++ {
		bicycles = append(bicycles, catalog.Bicycle{
			ID:    int64(i),
			Name:  fmt.Sprintf("Bike %d", i),
			Brand: "Trek",
			Model: fmt.Sprintf("Model %d", i),
			Year:  2020 + i%4,
			MSRP:  100 * float64(i),
			Type:  "road",
		})
	}
	return bicycles
}

func TestReconcileSkippedItemsMakeNoNetworkCalls(t *testing.T) {
	t.Parallel()

	docs := &fakeDocstore{}
	submitter := &fakeSubmitter{}
	r := NewReconciler(docs, submitter, nil)

	bicycles := makeBicycles(3)
	skip := map[int64]struct{}{2: {}}

	outcomes := r.Reconcile(context.Background(), bicycles, skip)

	require.Len(t, outcomes, 3)
	for _, out := range outcomes {
		require.True(t, out.Synced, "bicycle %d should be synced", out.Bicycle.ID)
	}
	require.Equal(t, 2, docs.deleteCount(), "skipped bicycle must not hit the docstore")
	require.Equal(t, 2, submitter.submitCount(), "skipped bicycle must not be submitted")
}

func TestReconcileSecondRunWithFirstRunSkipSetIsFree(t *testing.T) {
	t.Parallel()

	docs := &fakeDocstore{}
	submitter := &fakeSubmitter{}
	r := NewReconciler(docs, submitter, nil)

	bicycles := makeBicycles(10)
	first := r.Reconcile(context.Background(), bicycles, nil)

	skip := map[int64]struct{}{}
	for _, out := range first {
		require.True(t, out.Synced)
		skip[out.Bicycle.ID] = struct{}{}
	}

	before := submitter.submitCount()
	second := r.Reconcile(context.Background(), bicycles, skip)
	require.Len(t, second, 10)
	require.Equal(t, before, submitter.submitCount(), "second run must make zero network calls")
	require.Equal(t, 10, docs.deleteCount())
}

func TestReconcileSubmitFailureIsIsolated(t *testing.T) {
	t.Parallel()

	docs := &fakeDocstore{}
	submitter := &fakeSubmitter{failIDs: map[int64]bool{3: true}}
	r := NewReconciler(docs, submitter, nil)

	outcomes := r.Reconcile(context.Background(), makeBicycles(5), nil)

	require.Len(t, outcomes, 5)
	for _, out := range outcomes {
		if out.Bicycle.ID == 3 {
			require.False(t, out.Synced)
			require.Equal(t, "Bike 3", out.Bicycle.Name, "failure must carry the full snapshot")
		} else {
			require.True(t, out.Synced, "bicycle %d must be unaffected", out.Bicycle.ID)
		}
	}
	require.Equal(t, 5, docs.deleteCount())
}

func TestReconcileDocstoreFailureSkipsSubmission(t *testing.T) {
	t.Parallel()

	docs := &fakeDocstore{failModels: map[string]bool{"Model 1": true}}
	submitter := &fakeSubmitter{}
	r := NewReconciler(docs, submitter, nil)

	outcomes := r.Reconcile(context.Background(), makeBicycles(2), nil)

	var failed, synced int
	for _, out := range outcomes {
		if out.Synced {
			synced++
		} else {
			failed++
			require.Equal(t, int64(1), out.Bicycle.ID)
		}
	}
	require.Equal(t, 1, failed)
	require.Equal(t, 1, synced)
	require.Equal(t, 1, submitter.submitCount(), "failed cleanup must not be followed by a submission")
}

func TestReconcileLargeBatchAccountsForEveryItem(t *testing.T) {
	t.Parallel()

	// 120 bicycles, 40 already synchronized, 5 of the remaining 80 fail.
	bicycles := makeBicycles(120)
	skip := map[int64]struct{}{}
	for i := int64(1); i <= 40; i++ {
		skip[i] = struct{}{}
	}
	failIDs := map[int64]bool{50: true, 60: true, 70: true, 80: true, 90: true}

	docs := &fakeDocstore{}
	submitter := &fakeSubmitter{failIDs: failIDs}
	r := NewReconciler(docs, submitter, nil)

	outcomes := r.Reconcile(context.Background(), bicycles, skip)
	require.Len(t, outcomes, 120)

	seen := map[int64]bool{}
	var synced, failed int
	for _, out := range outcomes {
		require.False(t, seen[out.Bicycle.ID], "bicycle %d double-counted", out.Bicycle.ID)
		seen[out.Bicycle.ID] = true
		if out.Synced {
			synced++
			continue
		}
		failed++
		require.True(t, failIDs[out.Bicycle.ID])
	}
	require.Equal(t, 115, synced, "75 new + 40 carried successes")
	require.Equal(t, 5, failed)
	require.Equal(t, 80, docs.deleteCount(), "exactly one deletion per non-skipped bicycle")
}
