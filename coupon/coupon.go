// Package coupon enforces claim and usage limits for discount codes. Every
// limit check runs with the coupon row locked, in the same transaction as
// the write it guards.
package coupon

import (
	"context"
	"fmt"
	"time"
	"topup"
	"topup/db"

	"github.com/jackc/pgx/v4"
	"github.com/ninja-software/terror/v2"
	"github.com/shopspring/decimal"
)

// Discount returns the discount a coupon grants on a subtotal, clamped to
// the subtotal so a total can never go negative.
func Discount(c *topup.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.DiscountType {
	case topup.DiscountTypePercentage:
		d = subtotal.Mul(c.Value).Div(decimal.NewFromInt(100)).Round(2)
	case topup.DiscountTypeFixed:
		d = c.Value
	}
	if d.GreaterThan(subtotal) {
		return subtotal
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Validate checks a code against an order subtotal inside the checkout
// transaction and returns the coupon and the discount it grants. tx must be
// an open transaction; the coupon row stays locked until commit.
func Validate(ctx context.Context, tx db.Conn, code, userID string, subtotal decimal.Decimal) (*topup.Coupon, decimal.Decimal, error) {
	c, err := db.CouponGetByCodeForUpdate(ctx, tx, code)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if c == nil {
		return nil, decimal.Zero, terror.Error(fmt.Errorf("coupon not found: %s", code), "Invalid coupon code.")
	}
	if !c.Active {
		return nil, decimal.Zero, terror.Error(fmt.Errorf("coupon inactive: %s", code), "This coupon is no longer active.")
	}
	if c.ExpiresAt.Valid && c.ExpiresAt.Time.Before(time.Now()) {
		return nil, decimal.Zero, terror.Error(fmt.Errorf("coupon expired: %s", code), "This coupon has expired.")
	}
	if c.MinPurchase.Valid && subtotal.LessThan(c.MinPurchase.Decimal) {
		return nil, decimal.Zero, terror.Error(
			fmt.Errorf("subtotal %s below coupon minimum %s", subtotal, c.MinPurchase.Decimal),
			fmt.Sprintf("This coupon requires a minimum purchase of %s.", c.MinPurchase.Decimal),
		)
	}

	total, byUser, err := db.CouponOrderCounts(ctx, tx, c.ID, userID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if c.UsageLimit.Valid && total >= c.UsageLimit.Int {
		return nil, decimal.Zero, terror.Error(fmt.Errorf("coupon usage limit reached: %s", code), "This coupon has reached its usage limit.")
	}
	if c.PerUserLimit.Valid && byUser >= c.PerUserLimit.Int {
		return nil, decimal.Zero, terror.Error(fmt.Errorf("coupon per-user limit reached: %s", code), "You have already used this coupon.")
	}

	return c, Discount(c, subtotal), nil
}

// Claim records that a user claimed a store coupon. The claimed counter can
// never exceed the claim limit: the coupon row is locked before the check
// and the counter bump commits with the claim record.
func Claim(ctx context.Context, conn db.Conn, userID, code string) (*topup.Coupon, error) {
	var claimed *topup.Coupon
	err := db.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		c, err := db.CouponGetByCodeForUpdate(ctx, tx, code)
		if err != nil {
			return err
		}
		if c == nil {
			return terror.Error(fmt.Errorf("coupon not found: %s", code), "Invalid coupon code.")
		}
		if !c.Active {
			return terror.Error(fmt.Errorf("coupon inactive: %s", code), "This coupon is no longer active.")
		}
		if c.ExpiresAt.Valid && c.ExpiresAt.Time.Before(time.Now()) {
			return terror.Error(fmt.Errorf("coupon expired: %s", code), "This coupon has expired.")
		}
		if c.ClaimLimit.Valid && c.ClaimedCount >= c.ClaimLimit.Int {
			return terror.Error(fmt.Errorf("coupon claim limit reached: %s", code), "This coupon has been fully claimed.")
		}

		exists, err := db.UserCouponExists(ctx, tx, userID, c.ID)
		if err != nil {
			return err
		}
		if exists {
			return terror.Error(fmt.Errorf("coupon already claimed by user %s", userID), "You have already claimed this coupon.")
		}

		err = db.CouponBumpClaimedCount(ctx, tx, c.ID)
		if err != nil {
			return err
		}
		err = db.UserCouponInsert(ctx, tx, userID, c.ID)
		if err != nil {
			return err
		}
		c.ClaimedCount++
		claimed = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}
