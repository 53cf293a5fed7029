// Command order-export dumps every order to a compressed JSON-lines archive.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/jersey-orders/internal/archive"
	"github.com/xenking/jersey-orders/internal/domain/order"
	"github.com/xenking/jersey-orders/internal/storage/postgres"
)

const progressEvery = 10_000

func main() {
	var (
		databaseURL string
		out         string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&out, "out", "", "archive path (default orders-<date>.jsonl.gz)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if out == "" {
		out = "orders-" + time.Now().Format(time.DateOnly) + ".jsonl.gz"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, out); err != nil {
		slog.Error("order export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("order export completed successfully", slog.String("path", out))
}

func run(ctx context.Context, databaseURL, out string) (rerr error) {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	// Write next to the target and rename, so a failed export never
	// leaves a truncated archive under the final name.
	tmp := out + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "create %s", tmp)
	}
	defer func() {
		if rerr != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	w := archive.NewWriter(f)
	err = postgres.NewOrderRepository(pool).Each(ctx, func(o *order.Order) error {
		if err := w.Write(o); err != nil {
			return err
		}
		if w.Count()%progressEvery == 0 {
			slog.Info("export progress", slog.Int("orders", w.Count()))
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "export orders")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "flush archive")
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmp)
	}
	if err := os.Rename(tmp, out); err != nil {
		return errors.Wrapf(err, "rename %s", tmp)
	}

	slog.Info("orders exported", slog.Int("count", w.Count()))
	return nil
}
