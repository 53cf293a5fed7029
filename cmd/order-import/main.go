// Command order-import restores an order archive written by order-export.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/jersey-orders/internal/archive"
	"github.com/xenking/jersey-orders/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		in          string
		workers     int
		dryRun      bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&in, "in", "", "archive path written by order-export")
	flag.IntVar(&workers, "workers", runtime.GOMAXPROCS(0), "concurrent line decoders")
	flag.BoolVar(&dryRun, "dry-run", false, "report what would be imported without writing")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if in == "" {
		slog.Error("archive path is required: set --in")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, in, workers, dryRun); err != nil {
		slog.Error("order import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("order import completed successfully")
}

func run(ctx context.Context, databaseURL, in string, workers int, dryRun bool) error {
	f, err := os.Open(in)
	if err != nil {
		return errors.Wrapf(err, "open %s", in)
	}
	defer func() { _ = f.Close() }()

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(pool, zap.NewNop()); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	importer := archive.NewImporter(
		postgres.NewOrderRepository(pool),
		postgres.NewSequencer(pool),
		archive.WithWorkers(workers),
		archive.WithDryRun(dryRun),
	)

	slog.Info("importing orders", slog.String("path", in), slog.Int("workers", workers), slog.Bool("dry_run", dryRun))

	res, err := importer.Import(ctx, f)
	if res != nil {
		slog.Info("import summary",
			slog.Int("read", res.Read),
			slog.Int("inserted", res.Inserted),
			slog.Int("skipped", res.Skipped),
			slog.Int64("max_number", res.MaxNumber),
		)
	}
	if err != nil {
		return errors.Wrap(err, "import orders")
	}
	return nil
}
