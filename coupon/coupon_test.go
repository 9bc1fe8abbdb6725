package coupon_test

import (
	"testing"
	"topup"
	"topup/coupon"

	"github.com/shopspring/decimal"
)

func TestDiscount(t *testing.T) {
	tests := []struct {
		name     string
		coupon   *topup.Coupon
		subtotal string
		want     string
	}{
		{
			name:     "ten_percent",
			coupon:   &topup.Coupon{DiscountType: topup.DiscountTypePercentage, Value: decimal.NewFromInt(10)},
			subtotal: "2500",
			want:     "250",
		},
		{
			name:     "percentage_rounds_to_cents",
			coupon:   &topup.Coupon{DiscountType: topup.DiscountTypePercentage, Value: decimal.NewFromInt(15)},
			subtotal: "999.99",
			want:     "150",
		},
		{
			name:     "fixed",
			coupon:   &topup.Coupon{DiscountType: topup.DiscountTypeFixed, Value: decimal.NewFromInt(500)},
			subtotal: "2500",
			want:     "500",
		},
		{
			name:     "fixed_clamped_to_subtotal",
			coupon:   &topup.Coupon{DiscountType: topup.DiscountTypeFixed, Value: decimal.NewFromInt(5000)},
			subtotal: "1500",
			want:     "1500",
		},
		{
			name:     "negative_value_floors_at_zero",
			coupon:   &topup.Coupon{DiscountType: topup.DiscountTypeFixed, Value: decimal.NewFromInt(-100)},
			subtotal: "1500",
			want:     "0",
		},
		{
			name:     "hundred_percent",
			coupon:   &topup.Coupon{DiscountType: topup.DiscountTypePercentage, Value: decimal.NewFromInt(100)},
			subtotal: "1500",
			want:     "1500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subtotal, err := decimal.NewFromString(tt.subtotal)
			if err != nil {
				t.Fatal(err)
			}
			want, err := decimal.NewFromString(tt.want)
			if err != nil {
				t.Fatal(err)
			}

			got := coupon.Discount(tt.coupon, subtotal)
			if !got.Equal(want) {
				t.Fatalf("wanted discount %s, got %s", want, got)
			}
		})
	}
}
