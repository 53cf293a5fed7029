// Package archive reads and writes order archives: gzip-compressed JSON
// lines with one order per line.
package archive

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/jersey-orders/internal/domain/order"
)

// maxLine bounds a single archived order.
const maxLine = 1 << 20

// Writer appends orders to a compressed archive.
type Writer struct {
	gz    *pgzip.Writer
	e     jx.Encoder
	count int
}

// NewWriter returns a Writer compressing into w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{gz: pgzip.NewWriter(w)}
}

// Write appends o as one line.
func (w *Writer) Write(o *order.Order) error {
	w.e.Reset()
	EncodeOrder(&w.e, o)
	line := append(w.e.Bytes(), '\n')
	if _, err := w.gz.Write(line); err != nil {
		return errors.Wrapf(err, "write order %s", o.OrderNumber)
	}
	w.count++
	return nil
}

// Count returns the number of orders written so far.
func (w *Writer) Count() int { return w.count }

// Close flushes the compressed stream. It does not close the underlying
// writer.
func (w *Writer) Close() error {
	return w.gz.Close()
}

// ReadLines decompresses r and calls fn with every non-empty line. The
// slice passed to fn is only valid until fn returns.
func ReadLines(ctx context.Context, r io.Reader, fn func(line []byte) error) error {
	gz, err := pgzip.NewReader(r)
	if err != nil {
		return errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64<<10), maxLine)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "scan archive")
	}
	return nil
}

// EncodeOrder writes o as a JSON object. Amounts are strings so they
// survive the round trip exactly.
func EncodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.FieldStart("order_number")
		e.Str(o.OrderNumber)
		if o.PersonalizationID != nil {
			e.FieldStart("personalization_id")
			e.Str(*o.PersonalizationID)
		}
		e.FieldStart("customer")
		e.Obj(func(e *jx.Encoder) {
			str(e, "name", o.Customer.Name)
			str(e, "phone", o.Customer.Phone)
			str(e, "address", o.Customer.Address)
			str(e, "city", o.Customer.City)
			str(e, "postal_code", o.Customer.PostalCode)
		})
		str(e, "jersey_color", o.JerseyColor)
		e.FieldStart("name")
		encodeElement(e, o.Name, "")
		e.FieldStart("number")
		encodeElement(e, o.Number, "")
		e.FieldStart("slogan")
		encodeElement(e, o.Slogan.Element, o.Slogan.Size)
		str(e, "selected_position", o.SelectedPosition)
		if o.PreviewURL != nil {
			str(e, "preview_image_url", *o.PreviewURL)
		}
		str(e, "total_price", o.TotalPrice.StringFixed(2))
		str(e, "status", string(o.Status))
		str(e, "notes", o.Notes)
		str(e, "created_at", o.CreatedAt.UTC().Format(time.RFC3339Nano))
		str(e, "updated_at", o.UpdatedAt.UTC().Format(time.RFC3339Nano))
	})
}

func str(e *jx.Encoder, name, v string) {
	e.FieldStart(name)
	e.Str(v)
}

func encodeElement(e *jx.Encoder, el order.Element, size string) {
	e.Obj(func(e *jx.Encoder) {
		e.FieldStart("enabled")
		e.Bool(el.Enabled)
		str(e, "text", el.Text)
		str(e, "font", el.Font)
		str(e, "color", el.Color)
		e.FieldStart("x")
		e.Float64(el.Position.X)
		e.FieldStart("y")
		e.Float64(el.Position.Y)
		if size != "" {
			str(e, "size", size)
		}
	})
}

// DecodeOrder parses one archived order. ID is left zero.
func DecodeOrder(data []byte) (*order.Order, error) {
	var o order.Order
	err := jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "order_number":
			return strInto(d, &o.OrderNumber)
		case "personalization_id":
			var pid string
			if err := strInto(d, &pid); err != nil {
				return err
			}
			o.PersonalizationID = &pid
			return nil
		case "customer":
			return decodeCustomer(d, &o.Customer)
		case "jersey_color":
			return strInto(d, &o.JerseyColor)
		case "name":
			return decodeElement(d, &o.Name, nil)
		case "number":
			return decodeElement(d, &o.Number, nil)
		case "slogan":
			return decodeElement(d, &o.Slogan.Element, &o.Slogan.Size)
		case "selected_position":
			return strInto(d, &o.SelectedPosition)
		case "preview_image_url":
			var url string
			if err := strInto(d, &url); err != nil {
				return err
			}
			o.PreviewURL = &url
			return nil
		case "total_price":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "total_price")
			}
			if o.TotalPrice, err = decimal.NewFromString(s); err != nil {
				return errors.Wrap(err, "total_price")
			}
			return nil
		case "status":
			var s string
			if err := strInto(d, &s); err != nil {
				return err
			}
			o.Status = order.Status(s)
			return nil
		case "notes":
			return strInto(d, &o.Notes)
		case "created_at":
			return timeInto(d, &o.CreatedAt)
		case "updated_at":
			return timeInto(d, &o.UpdatedAt)
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode order")
	}
	if o.OrderNumber == "" {
		return nil, errors.New("decode order: missing order_number")
	}
	return &o, nil
}

func decodeCustomer(d *jx.Decoder, c *order.Customer) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "name":
			return strInto(d, &c.Name)
		case "phone":
			return strInto(d, &c.Phone)
		case "address":
			return strInto(d, &c.Address)
		case "city":
			return strInto(d, &c.City)
		case "postal_code":
			return strInto(d, &c.PostalCode)
		default:
			return d.Skip()
		}
	})
}

func decodeElement(d *jx.Decoder, el *order.Element, size *string) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "enabled":
			el.Enabled, err = d.Bool()
		case "text":
			err = strInto(d, &el.Text)
		case "font":
			err = strInto(d, &el.Font)
		case "color":
			err = strInto(d, &el.Color)
		case "x":
			el.Position.X, err = d.Float64()
		case "y":
			el.Position.Y, err = d.Float64()
		case "size":
			if size == nil {
				return d.Skip()
			}
			err = strInto(d, size)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "%s", key)
		}
		return nil
	})
}

func strInto(d *jx.Decoder, dst *string) error {
	v, err := d.Str()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func timeInto(d *jx.Decoder, dst *time.Time) error {
	s, err := d.Str()
	if err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	*dst = t
	return nil
}
