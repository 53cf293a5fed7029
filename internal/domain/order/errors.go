package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when the referenced order does not exist.
var ErrNotFound = errors.New("order not found")

// ValidationError indicates a request the service refuses to act on.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConflictError indicates a uniqueness violation on insert.
type ConflictError struct {
	// Field is the column whose uniqueness was violated, either
	// "order_number" or "personalization_id".
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Field, e.Value)
}

// Conflict fields reported by repositories.
const (
	ConflictOrderNumber       = "order_number"
	ConflictPersonalizationID = "personalization_id"
)
