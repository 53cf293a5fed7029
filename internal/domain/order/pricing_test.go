package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func selectionWith(name, number, slogan Element) Selection {
	sel := NewSelection()
	sel.Name = name
	sel.Number = number
	sel.Slogan.Element = slogan
	return sel
}

func TestComputePrice(t *testing.T) {
	on := func(text string) Element { return Element{Enabled: true, Text: text} }
	off := func(text string) Element { return Element{Text: text} }

	tests := []struct {
		name string
		sel  Selection
		want string
	}{
		{name: "nothing enabled", sel: NewSelection(), want: "180.00"},
		{name: "disabled with text", sel: selectionWith(off("KOOMA"), off("10"), off("DIMA")), want: "180.00"},
		{name: "name only", sel: selectionWith(on("KOOMA"), off(""), off("")), want: "210.00"},
		{name: "number only", sel: selectionWith(off(""), on("10"), off("")), want: "200.00"},
		{name: "slogan only", sel: selectionWith(off(""), off(""), on("DIMA MAGHRIB")), want: "230.00"},
		{name: "name and number", sel: selectionWith(on("KOOMA"), on("10"), off("")), want: "230.00"},
		{name: "all three", sel: selectionWith(on("KOOMA"), on("10"), on("DIMA")), want: "280.00"},
		{name: "enabled without text", sel: selectionWith(on(""), on(""), on("")), want: "180.00"},
		{name: "mixed empty text", sel: selectionWith(on("KOOMA"), on(""), on("DIMA")), want: "260.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputePrice(tt.sel)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestComputePrice_AllCombinations(t *testing.T) {
	for mask := range 8 {
		name, number, slogan := mask&1 != 0, mask&2 != 0, mask&4 != 0
		sel := selectionWith(
			Element{Enabled: name, Text: "N"},
			Element{Enabled: number, Text: "7"},
			Element{Enabled: slogan, Text: "S"},
		)

		want := int64(180)
		if name {
			want += 30
		}
		if number {
			want += 20
		}
		if slogan {
			want += 50
		}

		got := ComputePrice(sel)
		assert.True(t, decimal.NewFromInt(want).Equal(got), "mask %03b: got %s, want %d", mask, got, want)
		assert.Equal(t, int32(-2), got.Exponent(), "price keeps two decimal places")
	}
}
