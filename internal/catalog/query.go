package catalog

import (
	"fmt"
	"strings"
)

// Filter narrows extraction to a year range. Zero values leave the
// corresponding bound open. Active, not-soft-deleted, and positively-priced
// rows are always required.
type Filter struct {
	FromYear int
	ToYear   int
}

const selectColumns = `select
	b.id as id,
	b.name as name,
	bb.id as brand_id,
	bb.name as brand,
	bm.id as model_id,
	bm.name as model,
	b.year_id as year,
	b.retail_price as msrp,
	bt.name as type`

// body renders the shared FROM/WHERE clauses once so the count query and the
// page queries can never drift apart. Pagination correctness depends on both
// queries seeing the same predicate.
func (f Filter) body() (string, []any) {
	clauses := []string{
		"b.is_delete = 0",
		"bb.is_delete = 0",
		"bm.is_delete = 0",
		"bt.is_delete = 0",
		"b.active = 1",
		"b.retail_price is not null",
		"b.retail_price > 0.0001",
	}
	var args []any
	if f.FromYear > 0 {
		args = append(args, f.FromYear)
		clauses = append(clauses, fmt.Sprintf("b.year_id >= $%d", len(args)))
	}
	if f.ToYear > 0 {
		args = append(args, f.ToYear)
		clauses = append(clauses, fmt.Sprintf("b.year_id <= $%d", len(args)))
	}
	body := `
from bicycle b
left join bicycle_brand bb on b.brand_id = bb.id
left join bicycle_model bm on b.model_id = bm.id
left join bicycle_type bt on b.type_id = bt.id
where ` + strings.Join(clauses, "\n	and ")
	return body, args
}

// CountQuery returns the total-row query under the shared predicate.
func (f Filter) CountQuery() (string, []any) {
	body, args := f.body()
	return "select count(b.id) as total" + body, args
}

// PageQuery returns one page of rows ordered by id descending. The explicit
// order plus offset/limit keeps pages disjoint even if rows are inserted
// between the count and the page execution.
func (f Filter) PageQuery(offset, limit int) (string, []any) {
	body, args := f.body()
	query := selectColumns + body + fmt.Sprintf(
		"\norder by b.id desc\noffset $%d limit $%d",
		len(args)+1, len(args)+2,
	)
	return query, append(args, offset, limit)
}
