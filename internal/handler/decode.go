package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/jersey-orders/internal/domain/order"
)

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		return nil, badRequest("read body", err)
	}
	return body, nil
}

// decodeCreate decodes the create order body. Unknown fields are ignored
// and null is treated like an absent field.
func decodeCreate(body []byte) (order.CreateRequest, error) {
	var (
		req        order.CreateRequest
		hasPayload bool
	)
	req.Selection = order.NewSelection()

	err := jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		switch string(key) {
		case "personalizationData":
			hasPayload = true
			return decodeSelection(d, &req.Selection)
		case "customerInfo":
			return decodeCustomer(d, &req.Customer)
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return req, badRequest("invalid request body", err)
	}
	if !hasPayload {
		return req, &order.ValidationError{Field: "personalizationData", Message: "is required"}
	}
	return req, nil
}

func decodeSelection(d *jx.Decoder, sel *order.Selection) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		switch string(key) {
		case "id":
			return decodeStr(d, &sel.ID)
		case "timestamp":
			ms, err := d.Float64()
			if err != nil {
				return errors.Wrap(err, "timestamp")
			}
			sel.Timestamp = time.UnixMilli(int64(ms))
			return nil
		case "jerseyColor":
			return decodeStr(d, &sel.JerseyColor)
		case "name":
			return decodeElement(d, &sel.Name, nil)
		case "number":
			return decodeElement(d, &sel.Number, nil)
		case "slogan":
			return decodeElement(d, &sel.Slogan.Element, &sel.Slogan.Size)
		case "selectedPosition":
			return decodeStr(d, &sel.SelectedPosition)
		case "previewImage":
			return decodeStr(d, &sel.PreviewImage)
		default:
			return d.Skip()
		}
	})
}

// decodeElement decodes a personalization element. size is only set for
// the slogan.
func decodeElement(d *jx.Decoder, el *order.Element, size *string) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		switch string(key) {
		case "enabled":
			v, err := d.Bool()
			if err != nil {
				return errors.Wrap(err, "enabled")
			}
			el.Enabled = v
			return nil
		case "text":
			return decodeStr(d, &el.Text)
		case "font":
			return decodeStr(d, &el.Font)
		case "color":
			return decodeStr(d, &el.Color)
		case "size":
			if size == nil {
				return d.Skip()
			}
			return decodeStr(d, size)
		case "position":
			return decodePosition(d, &el.Position)
		default:
			return d.Skip()
		}
	})
}

// decodePosition overwrites only the coordinates present in the input.
func decodePosition(d *jx.Decoder, p *order.Position) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var dst *float64
		switch string(key) {
		case "x":
			dst = &p.X
		case "y":
			dst = &p.Y
		default:
			return d.Skip()
		}
		v, err := d.Float64()
		if err != nil {
			return errors.Wrapf(err, "position %s", key)
		}
		*dst = v
		return nil
	})
}

func decodeCustomer(d *jx.Decoder, c *order.Customer) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		switch string(key) {
		case "name":
			return decodeStr(d, &c.Name)
		case "phone":
			return decodeStr(d, &c.Phone)
		case "address":
			return decodeStr(d, &c.Address)
		case "city":
			return decodeStr(d, &c.City)
		case "postalCode":
			return decodeStr(d, &c.PostalCode)
		default:
			return d.Skip()
		}
	})
}

// decodePatch decodes the update body. Absent and null fields stay unset,
// an empty string is a set field.
func decodePatch(body []byte) (order.Patch, error) {
	var p order.Patch
	fields := map[string]*order.OptString{
		"status":             &p.Status,
		"notes":              &p.Notes,
		"customerName":       &p.CustomerName,
		"customerPhone":      &p.CustomerPhone,
		"customerAddress":    &p.CustomerAddress,
		"customerCity":       &p.CustomerCity,
		"customerPostalCode": &p.CustomerPostalCode,
	}

	err := jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
		dst, ok := fields[string(key)]
		if !ok {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		v, err := d.Str()
		if err != nil {
			return errors.Wrapf(err, "%s", key)
		}
		*dst = order.NewOptString(v)
		return nil
	})
	if err != nil {
		return order.Patch{}, badRequest("invalid request body", err)
	}
	return p, nil
}

func decodeStr(d *jx.Decoder, dst *string) error {
	v, err := d.Str()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
