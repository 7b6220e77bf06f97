// Package docstore defines the interface for clearing stale listings from the
// downstream document store. Using an interface decouples the reconciler from
// the Mongo driver, which keeps per-item failure tests cheap.
package docstore

import "context"

// ListingKey is the compound natural key a bicycle's listings are matched by.
// Price is deliberately not part of the key: listings store it as a float and
// exact-match deletion on it is unreliable. Type is also excluded so a
// reclassified bicycle still has its stale listings cleared.
type ListingKey struct {
	Make  string
	Model string
	Year  int
}

// Store is the document-store surface the reconciler needs.
type Store interface {
	// DeleteListings removes every listing matching the key. Removing zero
	// documents is not an error.
	DeleteListings(ctx context.Context, key ListingKey) error

	// Close terminates the client and releases its resources.
	Close(ctx context.Context) error
}

// NoOpStore discards deletions. It is useful for dry runs against the
// enrichment service and for local development without a document store.
type NoOpStore struct{}

// DeleteListings for NoOpStore does nothing.
func (NoOpStore) DeleteListings(context.Context, ListingKey) error { return nil }

// Close for NoOpStore does nothing.
func (NoOpStore) Close(context.Context) error { return nil }
