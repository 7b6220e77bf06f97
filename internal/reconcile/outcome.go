// Package reconcile drives the per-item reconciliation of extracted bicycles
// against the document store and the enrichment service, and orchestrates the
// full extract → filter → reconcile → persist run.
package reconcile

import "github.com/bicyclebluebook/catalog-sync/internal/catalog"

// Outcome is the result of reconciling one bicycle. Success needs only the
// id; failures keep the full snapshot so the failure artifact is inspectable
// and the item is retried on the next run.
type Outcome struct {
	Bicycle catalog.Bicycle
	Synced  bool
}
