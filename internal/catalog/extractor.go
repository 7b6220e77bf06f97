package catalog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bicyclebluebook/catalog-sync/internal/metrics"
)

// Querier runs parameterized queries. Both pgxpool-backed handles and pgxmock
// satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Handle is a single database connection. Queries issued through one Handle
// execute serially; concurrency comes from holding several handles at once.
type Handle interface {
	Querier
	Release()
}

// HandlePool hands out connection handles. The extractor owns every handle it
// acquires for the duration of a run and releases all of them before
// returning.
type HandlePool interface {
	Acquire(ctx context.Context) (Handle, error)
}

// ExtractorConfig bounds pagination and connection usage.
type ExtractorConfig struct {
	// PageSize is the number of rows per page query.
	PageSize int
	// MaxHandles caps how many connection handles run page queries at once.
	// Pages are split into contiguous chunks, one chunk per handle, and each
	// handle walks its chunk sequentially.
	MaxHandles int
}

// Extractor assembles the complete filtered bicycle set via bounded-
// concurrency paginated queries.
type Extractor struct {
	pool   HandlePool
	cfg    ExtractorConfig
	logger *zap.Logger
}

// NewExtractor constructs an Extractor. A nil logger is replaced with a nop.
func NewExtractor(pool HandlePool, cfg ExtractorConfig, logger *zap.Logger) (*Extractor, error) {
	if pool == nil {
		return nil, fmt.Errorf("handle pool is required")
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("page size must be > 0")
	}
	if cfg.MaxHandles <= 0 {
		return nil, fmt.Errorf("max handles must be > 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{pool: pool, cfg: cfg, logger: logger}, nil
}

// FetchAll returns every bicycle matching the filter, de-duplicated by the
// disjoint-pages guarantee. Any single page failure aborts the whole
// extraction: a partial set would poison the resumability ledger by marking
// missing items as already handled on the next run.
func (e *Extractor) FetchAll(ctx context.Context, filter Filter) ([]Bicycle, error) {
	total, err := e.count(ctx, filter)
	if err != nil {
		return nil, err
	}
	e.logger.Info("counted catalog rows",
		zap.Int64("total", total),
		zap.Int("from_year", filter.FromYear),
		zap.Int("to_year", filter.ToYear),
	)
	pageCount := int((total + int64(e.cfg.PageSize) - 1) / int64(e.cfg.PageSize))
	if pageCount == 0 {
		return []Bicycle{}, nil
	}

	pages := make([][]Bicycle, pageCount)
	handles := make([]Handle, 0, e.cfg.MaxHandles)
	defer func() {
		for _, h := range handles {
			h.Release()
		}
	}()

	handleCount := min(e.cfg.MaxHandles, pageCount)
	chunk := (pageCount + handleCount - 1) / handleCount

	// Acquire every handle before launching any page goroutine. A mid-loop
	// acquire failure then returns with no goroutine in flight, so the
	// deferred release loop never pulls a handle out from under a live query.
	for start := 0; start < pageCount; start += chunk {
		handle, err := e.pool.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire page handle: %w", err)
		}
		handles = append(handles, handle)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, handle := range handles {
		start := i * chunk
		end := min(start+chunk, pageCount)
		g.Go(func() error {
			for page := start; page < end; page++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				rows, err := e.fetchPage(gctx, handle, filter, page)
				if err != nil {
					return err
				}
				pages[page] = rows
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bicycles := make([]Bicycle, 0, total)
	for _, page := range pages {
		bicycles = append(bicycles, page...)
	}
	e.logger.Info("catalog extracted",
		zap.Int("bicycles", len(bicycles)),
		zap.Int("pages", pageCount),
		zap.Int("handles", len(handles)),
	)
	return bicycles, nil
}

func (e *Extractor) count(ctx context.Context, filter Filter) (int64, error) {
	handle, err := e.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire count handle: %w", err)
	}
	defer handle.Release()

	query, args := filter.CountQuery()
	var total int64
	if err := handle.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count bicycles: %w", err)
	}
	return total, nil
}

func (e *Extractor) fetchPage(ctx context.Context, handle Handle, filter Filter, page int) ([]Bicycle, error) {
	query, args := filter.PageQuery(page*e.cfg.PageSize, e.cfg.PageSize)
	rows, err := handle.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}
	defer rows.Close()

	bicycles := make([]Bicycle, 0, e.cfg.PageSize)
	for rows.Next() {
		var (
			b    Bicycle
			msrp string
		)
		// retail_price arrives as a numeric-typed string; parse rather than
		// trust the driver's float conversion.
		if err := rows.Scan(
			&b.ID, &b.Name,
			&b.BrandID, &b.Brand,
			&b.ModelID, &b.Model,
			&b.Year, &msrp, &b.Type,
		); err != nil {
			return nil, fmt.Errorf("scan page %d row: %w", page, err)
		}
		b.MSRP, err = strconv.ParseFloat(msrp, 64)
		if err != nil {
			return nil, fmt.Errorf("parse msrp %q for bicycle %d: %w", msrp, b.ID, err)
		}
		bicycles = append(bicycles, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read page %d rows: %w", page, err)
	}
	metrics.PageFetched()
	return bicycles, nil
}
