package archive

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/jersey-orders/internal/domain/order"
)

func archivedOrder(number string, pid *string) *order.Order {
	created := time.Date(2026, 2, 14, 9, 30, 0, 123456000, time.UTC)
	url := "/static/images/previews/p.png"
	return &order.Order{
		ID:                42,
		OrderNumber:       number,
		PersonalizationID: pid,
		Customer: order.Customer{
			Name:       "Salma Benali",
			Phone:      "0623456789",
			City:       "Rabat",
			PostalCode: "10000",
		},
		JerseyColor: "green",
		Name:        order.Element{Enabled: true, Text: "HAKIMI", Font: "Arial", Color: "#FFD700", Position: order.Position{X: 48.5, Y: 35}},
		Number:      order.Element{Enabled: true, Text: "2", Position: order.DefaultNumberPosition},
		Slogan: order.SloganElement{
			Element: order.Element{Enabled: true, Text: "DIMA \"MAGHRIB\"", Position: order.DefaultSloganPosition},
			Size:    "medium",
		},
		SelectedPosition: "back",
		PreviewURL:       &url,
		TotalPrice:       decimal.RequireFromString("280.00"),
		Status:           order.StatusShipped,
		Notes:            "gift wrap\nplease",
		CreatedAt:        created,
		UpdatedAt:        created.Add(time.Hour),
	}
}

func TestWriteRead(t *testing.T) {
	pid := "p-1"
	in := []*order.Order{
		archivedOrder("CMD-0001", &pid),
		archivedOrder("CMD-0002", nil),
	}
	in[1].PreviewURL = nil

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, o := range in {
		require.NoError(t, w.Write(o))
	}
	require.NoError(t, w.Close())
	assert.Equal(t, 2, w.Count())

	var out []*order.Order
	err := ReadLines(context.Background(), &buf, func(line []byte) error {
		o, err := DecodeOrder(line)
		if err != nil {
			return err
		}
		out = append(out, o)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, out, 2)

	for i, got := range out {
		want := *in[i]
		want.ID = 0
		assert.True(t, want.TotalPrice.Equal(got.TotalPrice))
		want.TotalPrice = got.TotalPrice
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
		assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
		want.CreatedAt, want.UpdatedAt = got.CreatedAt, got.UpdatedAt
		assert.Equal(t, &want, got)
	}
}

func TestReadLines_StopsOnError(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Write(archivedOrder("CMD-0001", nil)))
	require.NoError(t, w.Write(archivedOrder("CMD-0002", nil)))
	require.NoError(t, w.Close())

	stop := errors.New("stop")
	calls := 0
	err := ReadLines(context.Background(), &buf, func([]byte) error {
		calls++
		return stop
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestReadLines_NotGzip(t *testing.T) {
	err := ReadLines(context.Background(), bytes.NewReader([]byte("plain text")), func([]byte) error {
		return nil
	})
	require.Error(t, err)
}

func TestDecodeOrder_Invalid(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "MissingNumber", line: `{"status":"pending"}`},
		{name: "BadPrice", line: `{"order_number":"CMD-0001","total_price":"abc"}`},
		{name: "BadTime", line: `{"order_number":"CMD-0001","created_at":"yesterday"}`},
		{name: "NotObject", line: `[1,2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeOrder([]byte(tt.line))
			require.Error(t, err)
		})
	}
}
