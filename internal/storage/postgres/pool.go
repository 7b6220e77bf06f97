// Package postgres provides the pgx-backed connection pool behind the
// catalog extractor.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bicyclebluebook/catalog-sync/internal/catalog"
)

// PoolConfig controls the Postgres connection pool used for catalog queries.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	// RequestTimeout is applied as a server-side statement_timeout so a
	// stuck page query cannot hold a handle forever.
	RequestTimeout time.Duration
}

// Pool adapts pgxpool to the extractor's HandlePool contract. Acquired
// handles pin one connection each; the store serializes execution per
// connection, so each handle runs its queries strictly in order.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects to Postgres using the provided config.
func NewPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.RequestTimeout > 0 {
		poolCfg.ConnConfig.RuntimeParams["statement_timeout"] =
			strconv.FormatInt(cfg.RequestTimeout.Milliseconds(), 10)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Pool{pool: pool}, nil
}

// Acquire checks one connection out of the pool as an exclusively-owned
// handle. The caller must Release it.
func (p *Pool) Acquire(ctx context.Context) (catalog.Handle, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &handle{conn: conn}, nil
}

// Close releases the underlying pool resources.
func (p *Pool) Close() {
	if p == nil || p.pool == nil {
		return
	}
	p.pool.Close()
}

type handle struct {
	conn *pgxpool.Conn
}

func (h *handle) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return h.conn.Query(ctx, sql, args...)
}

func (h *handle) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return h.conn.QueryRow(ctx, sql, args...)
}

func (h *handle) Release() {
	h.conn.Release()
}
