package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bicyclebluebook/catalog-sync/internal/app"
	"github.com/bicyclebluebook/catalog-sync/internal/config"
	"github.com/bicyclebluebook/catalog-sync/internal/reconcile"
)

const shutdownTimeout = 10 * time.Second

// newSyncCmd creates the 'sync' subcommand, which runs one complete
// reconciliation pass.
func newSyncCmd() *cobra.Command {
	var (
		fromYear  int
		toYear    int
		forceSync bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Runs one reconciliation pass over the catalog",
		Long: `Extracts the filtered catalog, clears stale downstream listings, submits
each bicycle to the classification service, and persists the success/failure
ledger. Bicycles recorded as synchronized by a prior run are skipped unless
--force is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd.Context(), reconcile.Params{
				FromYear: fromYear,
				ToYear:   toYear,
				Force:    forceSync,
			})
		},
	}

	cmd.Flags().IntVar(&fromYear, "from", 0, "inclusive lower year bound (0 = unbounded)")
	cmd.Flags().IntVar(&toYear, "to", 0, "inclusive upper year bound (0 = unbounded)")
	cmd.Flags().BoolVar(&forceSync, "force", false, "discard the skip set and resynchronize everything")

	return cmd
}

func runSync(parent context.Context, params reconcile.Params) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !params.Force && cfg.Sync.Force {
		params.Force = true
	}

	// An interrupt aborts the run before the ledger is written; the prior
	// ledger stays valid for the next attempt.
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		application.Close(closeCtx)
	}()

	summary, err := application.Orchestrator.Run(ctx, params)
	if err != nil {
		application.Logger.Error("sync run aborted", zap.Error(err))
		return err
	}

	application.Logger.Info("sync finished",
		zap.Int("total", summary.Total),
		zap.Int("synced", summary.Synced),
		zap.Int("failed", summary.Failed),
	)
	return nil
}
