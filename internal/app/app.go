// Package app initializes and holds the long-lived services for a sync run,
// acting as a dependency injection container. Every resource it opens is
// scoped to one run and released by Close.
package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bicyclebluebook/catalog-sync/internal/api"
	"github.com/bicyclebluebook/catalog-sync/internal/catalog"
	"github.com/bicyclebluebook/catalog-sync/internal/config"
	"github.com/bicyclebluebook/catalog-sync/internal/docstore"
	"github.com/bicyclebluebook/catalog-sync/internal/enrich"
	"github.com/bicyclebluebook/catalog-sync/internal/ledger"
	"github.com/bicyclebluebook/catalog-sync/internal/logging"
	"github.com/bicyclebluebook/catalog-sync/internal/metrics"
	"github.com/bicyclebluebook/catalog-sync/internal/reconcile"
	"github.com/bicyclebluebook/catalog-sync/internal/storage/postgres"
)

// App holds the shared services for one sync run.
type App struct {
	RunID        string
	Logger       *zap.Logger
	Orchestrator *reconcile.Orchestrator

	pool      *postgres.Pool
	docs      docstore.Store
	statusSrv *api.Server
	cfg       config.Config
}

// New builds every service from config, failing fast if any collaborator is
// unreachable.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))
	logger.Info("initializing sync services")

	metrics.Init()

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:            cfg.DB.DSN,
		MaxConns:       cfg.DB.MaxConns,
		MinConns:       cfg.DB.MinConns,
		RequestTimeout: cfg.DBTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("init postgres pool: %w", err)
	}

	extractor, err := catalog.NewExtractor(pool, catalog.ExtractorConfig{
		PageSize:   cfg.DB.PageSize,
		MaxHandles: cfg.DB.MaxHandles,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init extractor: %w", err)
	}

	var docs docstore.Store
	switch cfg.Docstore.Provider {
	case "mongo":
		logger.Info("connecting to document store",
			zap.String("database", cfg.Docstore.Database),
			zap.String("collection", cfg.Docstore.Collection),
		)
		docs, err = docstore.NewMongoStore(ctx, docstore.MongoConfig{
			URI:        cfg.Docstore.URI,
			Database:   cfg.Docstore.Database,
			Collection: cfg.Docstore.Collection,
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init document store: %w", err)
		}
	case "noop":
		logger.Info("using no-op document store; stale listings will not be cleared")
		docs = docstore.NoOpStore{}
	default:
		pool.Close()
		return nil, fmt.Errorf("unknown docstore provider: %s", cfg.Docstore.Provider)
	}

	enricher, err := enrich.NewClient(enrich.Config{
		BaseURL:      cfg.Enrich.BaseURL,
		SecretHeader: cfg.Enrich.SecretHeader,
		SecretValue:  cfg.Enrich.SecretValue,
		Environment:  cfg.Enrich.Environment,
		App:          cfg.Enrich.App,
		RunID:        runID,
		Timeout:      cfg.EnrichTimeout(),
	})
	if err != nil {
		_ = docs.Close(ctx)
		pool.Close()
		return nil, fmt.Errorf("init enrichment client: %w", err)
	}

	ledgerStore := ledger.NewStore(cfg.Ledger.Dir, logger)
	reconciler := reconcile.NewReconciler(docs, enricher, logger)
	orchestrator := reconcile.NewOrchestrator(extractor, reconciler, ledgerStore, logger)

	a := &App{
		RunID:        runID,
		Logger:       logger,
		Orchestrator: orchestrator,
		pool:         pool,
		docs:         docs,
		cfg:          cfg,
	}

	if cfg.Server.Enabled {
		a.statusSrv = api.NewServer(cfg.Server.Port, logger)
		a.statusSrv.Start()
	}

	logger.Info("sync services initialized")
	return a, nil
}

// Close shuts down every service the App owns, in reverse order of
// construction.
func (a *App) Close(ctx context.Context) {
	a.Logger.Info("shutting down sync services")
	if a.statusSrv != nil {
		if err := a.statusSrv.Shutdown(ctx); err != nil {
			a.Logger.Warn("status server shutdown failed", zap.Error(err))
		}
	}
	if err := a.docs.Close(ctx); err != nil {
		a.Logger.Warn("document store close failed", zap.Error(err))
	}
	a.pool.Close()
	_ = a.Logger.Sync()
}
