package order

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// maxNumberAttempts bounds how often Create draws a new order number after
// an order number conflict.
const maxNumberAttempts = 5

// PreviewStore persists preview images. Save returns nil when the image
// could not be stored and never fails the caller.
type PreviewStore interface {
	Save(ctx context.Context, key, encoded string) *string
}

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	Selection Selection
	Customer  Customer
}

// CreateResult holds the output of a successfully created order.
type CreateResult struct {
	Order *Order
}

// Option configures a Service.
type Option func(*Service)

// WithChangeHook registers fn to run after every successful create, update
// and delete.
func WithChangeHook(fn func(ctx context.Context)) Option {
	return func(s *Service) {
		s.hooks = append(s.hooks, fn)
	}
}

// Service encapsulates the order lifecycle.
type Service struct {
	orders    Repository
	sequencer Sequencer
	previews  PreviewStore
	created   metric.Int64Counter
	hooks     []func(ctx context.Context)
}

// NewService creates an order Service with the required dependencies.
func NewService(
	orders Repository,
	sequencer Sequencer,
	previews PreviewStore,
	meter metric.Meter,
	opts ...Option,
) (*Service, error) {
	created, err := meter.Int64Counter("jersey.orders.created",
		metric.WithDescription("Number of orders created"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create orders counter")
	}
	s := &Service{
		orders:    orders,
		sequencer: sequencer,
		previews:  previews,
		created:   created,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) changed(ctx context.Context) {
	for _, fn := range s.hooks {
		fn(ctx)
	}
}

// Create prices the selection, stores the preview image, assigns an order
// number and persists the order in the pending state.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	sel := req.Selection
	total := ComputePrice(sel)

	var previewURL *string
	if sel.PreviewImage != "" {
		if sel.ID == "" {
			zctx.From(ctx).Warn("Preview image without personalization id, skipping")
		} else {
			previewURL = s.previews.Save(ctx, sel.ID, sel.PreviewImage)
		}
	}

	o := &Order{
		Customer:         req.Customer,
		JerseyColor:      sel.JerseyColor,
		Name:             sel.Name,
		Number:           sel.Number,
		Slogan:           sel.Slogan,
		SelectedPosition: sel.SelectedPosition,
		PreviewURL:       previewURL,
		TotalPrice:       total,
		Status:           StatusPending,
	}
	if sel.ID != "" {
		id := sel.ID
		o.PersonalizationID = &id
	}

	if err := s.insert(ctx, o); err != nil {
		return nil, err
	}

	s.created.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("name", sel.Name.HasText()),
		attribute.Bool("number", sel.Number.HasText()),
		attribute.Bool("slogan", sel.Slogan.HasText()),
	))
	zctx.From(ctx).Info("Order created",
		zap.Int64("id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.String("customer", customerLabel(o.Customer)),
		zap.String("total_price", o.TotalPrice.StringFixed(2)),
	)
	s.changed(ctx)

	return &CreateResult{Order: o}, nil
}

// insert draws order numbers until the insert does not collide with an
// existing order number.
func (s *Service) insert(ctx context.Context, o *Order) error {
	for attempt := 1; ; attempt++ {
		number, err := s.sequencer.NextOrderNumber(ctx)
		if err != nil {
			return errors.Wrap(err, "next order number")
		}
		o.OrderNumber = number

		err = s.orders.Insert(ctx, o)
		if err == nil {
			return nil
		}

		var conflict *ConflictError
		if errors.As(err, &conflict) && conflict.Field == ConflictOrderNumber && attempt < maxNumberAttempts {
			zctx.From(ctx).Warn("Order number taken, retrying",
				zap.String("order_number", number),
				zap.Int("attempt", attempt),
			)
			continue
		}
		return errors.Wrap(err, "insert order")
	}
}

// Get returns the order with the given id.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	return o, nil
}

// List returns a page of orders matching params.
func (s *Service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	res, err := s.orders.List(ctx, params.Normalize())
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return res, nil
}

// Update applies patch to the order. A patch without fields is rejected
// once the order is known to exist, and nothing is written.
func (s *Service) Update(ctx context.Context, id int64, patch Patch) (*Order, error) {
	if patch.Empty() {
		if _, err := s.orders.Get(ctx, id); err != nil {
			return nil, errors.Wrapf(err, "get order %d", id)
		}
		return nil, &ValidationError{Message: "no fields to update"}
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	o, err := s.orders.Update(ctx, id, patch)
	if err != nil {
		return nil, errors.Wrapf(err, "update order %d", id)
	}

	zctx.From(ctx).Info("Order updated",
		zap.Int64("id", id),
		zap.String("status", string(o.Status)),
	)
	s.changed(ctx)
	return o, nil
}

// Delete removes the order permanently.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "delete order %d", id)
	}
	zctx.From(ctx).Info("Order deleted", zap.Int64("id", id))
	s.changed(ctx)
	return nil
}

// FormatOrderNumber renders a sequence value as a human-facing order
// number, e.g. 1 as CMD-0001.
func FormatOrderNumber(n int64) string {
	return fmt.Sprintf("CMD-%04d", n)
}

// ParseOrderNumber is the inverse of FormatOrderNumber.
func ParseOrderNumber(s string) (int64, bool) {
	digits, ok := strings.CutPrefix(s, "CMD-")
	if !ok || digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func customerLabel(c Customer) string {
	if c.Name == "" {
		return "Client"
	}
	return c.Name
}
