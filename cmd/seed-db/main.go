// Command seed-db creates demo orders through the order service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/xenking/jersey-orders/internal/domain/order"
	"github.com/xenking/jersey-orders/internal/domain/preview"
	"github.com/xenking/jersey-orders/internal/storage/localfs"
	"github.com/xenking/jersey-orders/internal/storage/postgres"
)

type elementJSON struct {
	Enabled bool   `json:"enabled"`
	Text    string `json:"text"`
	Font    string `json:"font"`
	Color   string `json:"color"`
	Size    string `json:"size"`
}

type orderJSON struct {
	ID               string      `json:"id"`
	JerseyColor      string      `json:"jerseyColor"`
	Name             elementJSON `json:"name"`
	Number           elementJSON `json:"number"`
	Slogan           elementJSON `json:"slogan"`
	SelectedPosition string      `json:"selectedPosition"`
	PreviewImage     string      `json:"previewImage"`
	Customer         struct {
		Name       string `json:"name"`
		Phone      string `json:"phone"`
		Address    string `json:"address"`
		City       string `json:"city"`
		PostalCode string `json:"postalCode"`
	} `json:"customer"`
	Status string `json:"status"`
}

func main() {
	var (
		databaseURL string
		ordersFile  string
		previewDir  string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&ordersFile, "orders-file", "db/seed/orders.json", "path to demo orders JSON file")
	flag.StringVar(&previewDir, "preview-dir", "static/images/previews", "directory for seeded preview images")
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

	if err := run(ctx, databaseURL, ordersFile, previewDir); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, ordersFile, previewDir string) error {
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

	backend, err := localfs.New(previewDir, "/static/images/previews")
	if err != nil {
		return errors.Wrap(err, "create preview store")
	}

	svc, err := order.NewService(
		postgres.NewOrderRepository(pool),
		postgres.NewSequencer(pool),
		preview.NewStore(backend),
		noop.NewMeterProvider().Meter("seed-db"),
	)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	return seedOrders(ctx, svc, ordersFile)
}

func seedOrders(ctx context.Context, svc *order.Service, ordersFile string) error {
	slog.Info("reading orders file", slog.String("path", ordersFile))

	data, err := os.ReadFile(ordersFile)
	if err != nil {
		return errors.Wrap(err, "read orders file")
	}

	var orders []orderJSON
	if err := json.Unmarshal(data, &orders); err != nil {
		return errors.Wrap(err, "parse orders JSON")
	}

	slog.Info("creating orders", slog.Int("count", len(orders)))

	for _, o := range orders {
		res, err := svc.Create(ctx, o.request())
		var conflict *order.ConflictError
		if errors.As(err, &conflict) {
			slog.Info("order already seeded", slog.String("personalization_id", o.ID))
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "create order %s", o.ID)
		}

		created := res.Order
		if o.Status != "" && order.Status(o.Status) != created.Status {
			patch := order.Patch{Status: order.NewOptString(o.Status)}
			if created, err = svc.Update(ctx, created.ID, patch); err != nil {
				return errors.Wrapf(err, "set status of %s", res.Order.OrderNumber)
			}
		}

		slog.Info("created order",
			slog.String("order_number", created.OrderNumber),
			slog.String("total_price", created.TotalPrice.StringFixed(2)),
			slog.String("status", string(created.Status)),
		)
	}

	return nil
}

func (o orderJSON) request() order.CreateRequest {
	sel := order.NewSelection()
	sel.ID = o.ID
	sel.Timestamp = time.Now()
	sel.JerseyColor = o.JerseyColor
	o.Name.apply(&sel.Name)
	o.Number.apply(&sel.Number)
	o.Slogan.apply(&sel.Slogan.Element)
	sel.Slogan.Size = o.Slogan.Size
	sel.SelectedPosition = o.SelectedPosition
	sel.PreviewImage = o.PreviewImage

	return order.CreateRequest{
		Selection: sel,
		Customer: order.Customer{
			Name:       o.Customer.Name,
			Phone:      o.Customer.Phone,
			Address:    o.Customer.Address,
			City:       o.Customer.City,
			PostalCode: o.Customer.PostalCode,
		},
	}
}

// apply copies the element fields, keeping the default position.
func (e elementJSON) apply(el *order.Element) {
	el.Enabled = e.Enabled
	el.Text = e.Text
	el.Font = e.Font
	el.Color = e.Color
}
