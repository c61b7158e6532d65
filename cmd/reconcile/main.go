// Command reconcile runs one repair pass over the order ledger: coupon usage
// counters are reset to match the usage log, and completed orders missing
// download entitlements get them granted. Intended to run from cron.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/inkstore/internal/domain/entitlement"
	"github.com/xenking/inkstore/internal/domain/reconcile"
	"github.com/xenking/inkstore/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		dryRun      bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.BoolVar(&dryRun, "dry-run", false, "report drift without repairing it")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, dryRun); err != nil {
		slog.Error("reconcile failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL string, dryRun bool) error {
	lg, err := zap.NewProduction()
	if err != nil {
		return errors.Wrap(err, "create logger")
	}
	defer func() { _ = lg.Sync() }()
	ctx = zctx.Base(ctx, lg)

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	svc := reconcile.NewService(
		postgres.NewReconcileStore(pool),
		entitlement.NewGranter(postgres.NewProductRepository(pool), postgres.NewAccessRepository(pool)),
		dryRun,
	)

	rep, err := svc.Run(ctx)
	if err != nil {
		return errors.Wrap(err, "run reconcile pass")
	}

	lg.Info("reconcile pass complete",
		zap.Bool("dry_run", dryRun),
		zap.Int("counters_repaired", rep.CountersRepaired),
		zap.Int("grants_repaired", rep.GrantsRepaired),
	)
	return nil
}
