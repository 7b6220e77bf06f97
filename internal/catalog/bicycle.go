// Package catalog defines the bicycle catalog model and the paginated
// extraction of it from the relational source of record.
package catalog

// Bicycle is one catalog entry. ID is the only key that is stable across the
// relational store, the document store, and the ledger; every other field is
// re-read as current truth on each run.
type Bicycle struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	BrandID int64   `json:"brandId"`
	Brand   string  `json:"brand"`
	ModelID int64   `json:"modelId"`
	Model   string  `json:"model"`
	Year    int     `json:"year"`
	MSRP    float64 `json:"msrp"`
	Type    string  `json:"type"`
}
