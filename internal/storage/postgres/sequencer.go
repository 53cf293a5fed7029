package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/jersey-orders/internal/domain/order"
)

var _ order.Sequencer = (*Sequencer)(nil)

// Sequencer draws order numbers from the order_number_seq sequence.
// nextval is atomic, so concurrent callers never receive the same number.
type Sequencer struct {
	pool *pgxpool.Pool
}

// NewSequencer returns a Sequencer that uses the given pool.
func NewSequencer(pool *pgxpool.Pool) *Sequencer {
	return &Sequencer{pool: pool}
}

// NextOrderNumber returns the next unused order number, e.g. CMD-0001.
func (s *Sequencer) NextOrderNumber(ctx context.Context) (string, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&n); err != nil {
		return "", fmt.Errorf("drawing order number: %w", err)
	}
	return order.FormatOrderNumber(n), nil
}

// AdvanceTo moves the sequence so the next number drawn is greater than n.
// It never moves the sequence backwards.
func (s *Sequencer) AdvanceTo(ctx context.Context, n int64) error {
	_, err := s.pool.Exec(ctx,
		`SELECT setval('order_number_seq', GREATEST($1::bigint, (SELECT last_value FROM order_number_seq)))`,
		n,
	)
	if err != nil {
		return fmt.Errorf("advancing order number sequence to %d: %w", n, err)
	}
	return nil
}
