package checkout_test

import (
	"testing"
	"topup"
	"topup/checkout"

	"github.com/shopspring/decimal"
)

func TestAllocateLineTotals(t *testing.T) {
	options := []*topup.CardOption{
		{Price: decimal.NewFromInt(1000)},
		{Price: decimal.NewFromInt(500)},
		{Price: decimal.NewFromInt(250)},
	}
	items := []checkout.LineItem{
		{Quantity: 1},
		{Quantity: 2},
		{Quantity: 1},
	}
	// subtotal: 1000 + 1000 + 250 = 2250

	tests := []struct {
		name     string
		discount string
		want     []string
	}{
		{name: "no_discount", discount: "0", want: []string{"1000", "1000", "250"}},
		{name: "discount_within_last_line", discount: "200", want: []string{"1000", "1000", "50"}},
		{name: "discount_spills_backwards", discount: "750", want: []string{"1000", "500", "0"}},
		{name: "full_discount", discount: "2250", want: []string{"0", "0", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			discount, err := decimal.NewFromString(tt.discount)
			if err != nil {
				t.Fatal(err)
			}

			totals := checkout.AllocateLineTotals(options, items, discount)
			if len(totals) != len(tt.want) {
				t.Fatalf("wanted %d line totals, got %d", len(tt.want), len(totals))
			}

			sum := decimal.Zero
			for i, total := range totals {
				want, err := decimal.NewFromString(tt.want[i])
				if err != nil {
					t.Fatal(err)
				}
				if !total.Equal(want) {
					t.Fatalf("line %d: wanted %s, got %s", i, want, total)
				}
				if total.IsNegative() {
					t.Fatalf("line %d went negative: %s", i, total)
				}
				sum = sum.Add(total)
			}

			// lines always sum to subtotal - discount
			want := decimal.NewFromInt(2250).Sub(discount)
			if !sum.Equal(want) {
				t.Fatalf("wanted lines to sum to %s, got %s", want, sum)
			}
		})
	}
}
