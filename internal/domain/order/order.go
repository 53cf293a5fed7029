package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the fulfilment state of an order. The set of values is open:
// any string is stored as-is, the constants below are the recommended ones.
type Status string

const (
	StatusPending      Status = "pending"
	StatusConfirmed    Status = "confirmed"
	StatusInProduction Status = "in_production"
	StatusShipped      Status = "shipped"
	StatusDelivered    Status = "delivered"
)

// Position is a placement on the jersey preview in percent of width/height.
type Position struct {
	X float64
	Y float64
}

// Default element placements applied when the client omits a coordinate.
var (
	DefaultNamePosition   = Position{X: 50, Y: 35}
	DefaultNumberPosition = Position{X: 50, Y: 50}
	DefaultSloganPosition = Position{X: 50, Y: 65}
)

// Element is one toggleable customization (name, number or slogan).
type Element struct {
	Enabled  bool
	Text     string
	Font     string `validate:"max=50"`
	Color    string `validate:"max=50"`
	Position Position
}

// HasText reports whether the element is enabled and carries text.
func (e Element) HasText() bool {
	return e.Enabled && e.Text != ""
}

// SloganElement is the slogan customization, which also has a size.
type SloganElement struct {
	Element
	Size string `validate:"max=20"`
}

// Selection is the customer's personalization of a jersey.
type Selection struct {
	// ID is generated by the client and identifies the personalization.
	// It keys the preview image and is unique across orders.
	ID               string `validate:"max=100"`
	Timestamp        time.Time
	JerseyColor      string `validate:"max=20"`
	Name             Element
	Number           Element
	Slogan           SloganElement
	SelectedPosition string `validate:"max=20"`
	// PreviewImage is a base64 payload, optionally in data URI form.
	PreviewImage string
}

// NewSelection returns a selection with default element placements.
func NewSelection() Selection {
	return Selection{
		Name:   Element{Position: DefaultNamePosition},
		Number: Element{Position: DefaultNumberPosition},
		Slogan: SloganElement{Element: Element{Position: DefaultSloganPosition}},
	}
}

// Customer holds optional contact details.
type Customer struct {
	Name       string `validate:"max=100"`
	Phone      string `validate:"max=20"`
	Address    string
	City       string `validate:"max=100"`
	PostalCode string `validate:"max=20"`
}

// Order is a persisted jersey order with the personalization flattened.
type Order struct {
	ID                int64
	OrderNumber       string
	PersonalizationID *string

	Customer Customer

	JerseyColor      string
	Name             Element
	Number           Element
	Slogan           SloganElement
	SelectedPosition string
	PreviewURL       *string

	TotalPrice decimal.Decimal
	Status     Status
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Insert persists o and fills in ID, CreatedAt and UpdatedAt.
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Update(ctx context.Context, id int64, patch Patch) (*Order, error)
	Delete(ctx context.Context, id int64) error
}

// Sequencer hands out order numbers that no other order uses.
type Sequencer interface {
	NextOrderNumber(ctx context.Context) (string, error)
}
