package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/jersey-orders/internal/domain/order"
)

const orderColumns = `id, order_number, personalization_id,
	customer_name, customer_phone, customer_address, customer_city, customer_postal_code,
	jersey_color,
	name_enabled, name_text, name_font, name_color, name_position_x, name_position_y,
	number_enabled, number_text, number_font, number_color, number_position_x, number_position_y,
	slogan_enabled, slogan_text, slogan_font, slogan_color, slogan_size, slogan_position_x, slogan_position_y,
	selected_position, preview_image_url, total_price, status, notes, created_at, updated_at`

const insertOrderSQL = `INSERT INTO orders (
	order_number, personalization_id,
	customer_name, customer_phone, customer_address, customer_city, customer_postal_code,
	jersey_color,
	name_enabled, name_text, name_font, name_color, name_position_x, name_position_y,
	number_enabled, number_text, number_font, number_color, number_position_x, number_position_y,
	slogan_enabled, slogan_text, slogan_font, slogan_color, slogan_size, slogan_position_x, slogan_position_y,
	selected_position, preview_image_url, total_price, status, notes, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
	$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32,
	COALESCE($33::timestamptz, now()), COALESCE($34::timestamptz, $33::timestamptz, now())
) RETURNING id, created_at, updated_at`

// searchColumns are matched by the free-text search of List.
var searchColumns = []string{
	"customer_name",
	"customer_phone",
	"order_number",
	"name_text",
	"number_text",
}

// conflictFields maps unique constraints to the order field they guard.
var conflictFields = map[string]string{
	"orders_order_number_key":       order.ConflictOrderNumber,
	"orders_personalization_id_key": order.ConflictPersonalizationID,
}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Insert persists a new order and fills in its id and timestamps. Zero
// timestamps default to the current time, set ones are kept as restored
// values. A unique violation is reported as *order.ConflictError.
func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	err := r.pool.QueryRow(ctx, insertOrderSQL,
		o.OrderNumber, o.PersonalizationID,
		o.Customer.Name, o.Customer.Phone, o.Customer.Address, o.Customer.City, o.Customer.PostalCode,
		o.JerseyColor,
		o.Name.Enabled, o.Name.Text, o.Name.Font, o.Name.Color, o.Name.Position.X, o.Name.Position.Y,
		o.Number.Enabled, o.Number.Text, o.Number.Font, o.Number.Color, o.Number.Position.X, o.Number.Position.Y,
		o.Slogan.Enabled, o.Slogan.Text, o.Slogan.Font, o.Slogan.Color, o.Slogan.Size, o.Slogan.Position.X, o.Slogan.Position.Y,
		o.SelectedPosition, o.PreviewURL, o.TotalPrice, string(o.Status), o.Notes,
		nullTime(o.CreatedAt), nullTime(o.UpdatedAt),
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if conflict := asConflict(err, o); conflict != nil {
			return conflict
		}
		return fmt.Errorf("inserting order %q: %w", o.OrderNumber, err)
	}
	return nil
}

// Get returns the order with the given id or order.ErrNotFound.
func (r *OrderRepository) Get(ctx context.Context, id int64) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	return o, nil
}

// List returns a page of orders and the total number of matches. Both are
// read from the same snapshot.
func (r *OrderRepository) List(ctx context.Context, params order.ListParams) (*order.ListResult, error) {
	var b queryBuilder
	if params.Status != "" {
		b.eq("status", string(params.Status))
	}
	if params.Search != "" {
		b.containsAny(params.Search, searchColumns...)
	}
	where := b.where()

	res := &order.ListResult{
		Orders: []order.Order{},
		Limit:  params.Limit,
		Offset: params.Offset,
	}

	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM orders`+where, b.args...).Scan(&res.Total); err != nil {
			return fmt.Errorf("counting orders: %w", err)
		}

		args := append(b.args[:len(b.args):len(b.args)], params.Limit, params.Offset)
		page := fmt.Sprintf(`SELECT %s FROM orders%s%s LIMIT $%d OFFSET $%d`,
			orderColumns, where, orderBy(params.SortBy, params.Ascending), len(args)-1, len(args))

		rows, err := tx.Query(ctx, page, args...)
		if err != nil {
			return fmt.Errorf("listing orders: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			o, err := scanOrder(rows)
			if err != nil {
				return fmt.Errorf("scanning order: %w", err)
			}
			res.Orders = append(res.Orders, *o)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Update writes the set fields of patch and advances updated_at.
func (r *OrderRepository) Update(ctx context.Context, id int64, patch order.Patch) (*order.Order, error) {
	var b queryBuilder
	fields := []struct {
		col string
		val order.OptString
	}{
		{"status", patch.Status},
		{"notes", patch.Notes},
		{"customer_name", patch.CustomerName},
		{"customer_phone", patch.CustomerPhone},
		{"customer_address", patch.CustomerAddress},
		{"customer_city", patch.CustomerCity},
		{"customer_postal_code", patch.CustomerPostalCode},
	}
	for _, f := range fields {
		if v, ok := f.val.Get(); ok {
			b.set(f.col, v)
		}
	}
	// Strictly increasing even when two updates land within clock resolution.
	b.setExpr("updated_at", "GREATEST(clock_timestamp(), updated_at + interval '1 microsecond')")

	query := `UPDATE orders SET ` + b.assignments() +
		` WHERE id = ` + b.arg(id) +
		` RETURNING ` + orderColumns

	o, err := scanOrder(r.pool.QueryRow(ctx, query, b.args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("updating order %d: %w", id, err)
	}
	return o, nil
}

// Delete removes the order. It returns order.ErrNotFound when no row was
// deleted.
func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// Each calls fn for every order in id order. Iteration stops at the first
// error returned by fn.
func (r *OrderRepository) Each(ctx context.Context, fn func(*order.Order) error) error {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY id`)
	if err != nil {
		return fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return fmt.Errorf("scanning order: %w", err)
		}
		if err := fn(o); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Keys returns the order numbers and personalization ids of all orders.
func (r *OrderRepository) Keys(ctx context.Context) (numbers, personalizationIDs []string, err error) {
	rows, err := r.pool.Query(ctx, `SELECT order_number, personalization_id FROM orders`)
	if err != nil {
		return nil, nil, fmt.Errorf("querying order keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			number string
			pid    *string
		)
		if err := rows.Scan(&number, &pid); err != nil {
			return nil, nil, fmt.Errorf("scanning order keys: %w", err)
		}
		numbers = append(numbers, number)
		if pid != nil {
			personalizationIDs = append(personalizationIDs, *pid)
		}
	}
	return numbers, personalizationIDs, rows.Err()
}

// Exists reports whether an order uses the order number or, when pid is
// non-nil, the personalization id.
func (r *OrderRepository) Exists(ctx context.Context, number string, pid *string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1 OR ($2::text IS NOT NULL AND personalization_id = $2))`,
		number, pid,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking order %q: %w", number, err)
	}
	return exists, nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.PersonalizationID,
		&o.Customer.Name, &o.Customer.Phone, &o.Customer.Address, &o.Customer.City, &o.Customer.PostalCode,
		&o.JerseyColor,
		&o.Name.Enabled, &o.Name.Text, &o.Name.Font, &o.Name.Color, &o.Name.Position.X, &o.Name.Position.Y,
		&o.Number.Enabled, &o.Number.Text, &o.Number.Font, &o.Number.Color, &o.Number.Position.X, &o.Number.Position.Y,
		&o.Slogan.Enabled, &o.Slogan.Text, &o.Slogan.Font, &o.Slogan.Color, &o.Slogan.Size, &o.Slogan.Position.X, &o.Slogan.Position.Y,
		&o.SelectedPosition, &o.PreviewURL, &o.TotalPrice, &status, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = order.Status(status)
	return &o, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func asConflict(err error, o *order.Order) *order.ConflictError {
	pgErr, ok := hasPGCode(err, codeUniqueViolation)
	if !ok {
		return nil
	}
	field, ok := conflictFields[pgErr.ConstraintName]
	if !ok {
		return nil
	}
	value := o.OrderNumber
	if field == order.ConflictPersonalizationID && o.PersonalizationID != nil {
		value = *o.PersonalizationID
	}
	return &order.ConflictError{Field: field, Value: value}
}
