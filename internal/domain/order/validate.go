package order

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
)

// Text limits matching the column sizes.
const (
	maxNameText   = 50
	maxNumberText = 10
	maxSloganText = 100

	maxStatus       = 50
	maxCustomerName = 100
	maxPhone        = 20
	maxCity         = 100
	maxPostalCode   = 20
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterStructValidation(validateSelection, Selection{})
	})
	return validate
}

func validateSelection(sl validator.StructLevel) {
	sel := sl.Current().Interface().(Selection)
	if utf8.RuneCountInString(sel.Name.Text) > maxNameText {
		sl.ReportError(sel.Name.Text, "Name.Text", "Text", "max", fmt.Sprint(maxNameText))
	}
	if utf8.RuneCountInString(sel.Number.Text) > maxNumberText {
		sl.ReportError(sel.Number.Text, "Number.Text", "Text", "max", fmt.Sprint(maxNumberText))
	}
	if utf8.RuneCountInString(sel.Slogan.Text) > maxSloganText {
		sl.ReportError(sel.Slogan.Text, "Slogan.Text", "Text", "max", fmt.Sprint(maxSloganText))
	}
}

// validateCreate checks field lengths so oversized input is reported as a
// validation error rather than a storage failure.
func validateCreate(req CreateRequest) error {
	err := getValidator().Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validate")
	}

	fe := verrs[0]
	return &ValidationError{
		Field:   trimNamespace(fe.Namespace()),
		Message: fmt.Sprintf("exceeds %s characters", fe.Param()),
	}
}

// validatePatch applies the column limits to the set fields of p.
func validatePatch(p Patch) error {
	limits := []struct {
		field string
		value OptString
		max   int
	}{
		{"status", p.Status, maxStatus},
		{"customerName", p.CustomerName, maxCustomerName},
		{"customerPhone", p.CustomerPhone, maxPhone},
		{"customerCity", p.CustomerCity, maxCity},
		{"customerPostalCode", p.CustomerPostalCode, maxPostalCode},
	}
	for _, l := range limits {
		if v, ok := l.value.Get(); ok && utf8.RuneCountInString(v) > l.max {
			return &ValidationError{
				Field:   l.field,
				Message: fmt.Sprintf("exceeds %d characters", l.max),
			}
		}
	}
	return nil
}

func trimNamespace(ns string) string {
	_, rest, ok := strings.Cut(ns, ".")
	if !ok {
		return ns
	}
	return rest
}
