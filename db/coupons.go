package db

import (
	"context"
	"errors"
	"strings"
	"time"
	"topup"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/ninja-software/terror/v2"
)

func CouponGet(ctx context.Context, conn Conn, couponID string) (*topup.Coupon, error) {
	coupon := &topup.Coupon{}
	q := `SELECT * FROM coupons WHERE id = $1`
	err := pgxscan.Get(ctx, conn, coupon, q, couponID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, terror.Error(err)
	}
	return coupon, nil
}

// CouponGetByCodeForUpdate locks the coupon row so limit checks and counter
// bumps in the same transaction cannot race.
func CouponGetByCodeForUpdate(ctx context.Context, tx Conn, code string) (*topup.Coupon, error) {
	coupon := &topup.Coupon{}
	q := `SELECT * FROM coupons WHERE code = $1 FOR UPDATE`
	err := pgxscan.Get(ctx, tx, coupon, q, strings.ToUpper(strings.TrimSpace(code)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, terror.Error(err)
	}
	return coupon, nil
}

func CouponList(ctx context.Context, conn Conn) ([]*topup.Coupon, error) {
	coupons := []*topup.Coupon{}
	q := `SELECT * FROM coupons ORDER BY created_at DESC`
	err := pgxscan.Select(ctx, conn, &coupons, q)
	if err != nil {
		return nil, terror.Error(err)
	}
	return coupons, nil
}

func CouponCreate(ctx context.Context, conn Conn, coupon *topup.Coupon) error {
	coupon.ID = uuid.Must(uuid.NewV4()).String()
	coupon.Code = strings.ToUpper(strings.TrimSpace(coupon.Code))
	coupon.CreatedAt = time.Now()
	q := `
		INSERT INTO coupons (
			id, code, discount_type, value, min_purchase, expires_at,
			per_user_limit, usage_limit, claim_limit, active, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := conn.Exec(ctx, q,
		coupon.ID, coupon.Code, coupon.DiscountType, coupon.Value, coupon.MinPurchase, coupon.ExpiresAt,
		coupon.PerUserLimit, coupon.UsageLimit, coupon.ClaimLimit, coupon.Active, coupon.CreatedAt,
	)
	if err != nil {
		return terror.Error(err, "Failed to create coupon, the code may already exist.")
	}
	return nil
}

func CouponUpdate(ctx context.Context, conn Conn, coupon *topup.Coupon) error {
	q := `
		UPDATE coupons
		SET discount_type = $2, value = $3, min_purchase = $4, expires_at = $5,
			per_user_limit = $6, usage_limit = $7, claim_limit = $8, active = $9
		WHERE id = $1
	`
	_, err := conn.Exec(ctx, q,
		coupon.ID, coupon.DiscountType, coupon.Value, coupon.MinPurchase, coupon.ExpiresAt,
		coupon.PerUserLimit, coupon.UsageLimit, coupon.ClaimLimit, coupon.Active,
	)
	if err != nil {
		return terror.Error(err, "Failed to update coupon.")
	}
	return nil
}

func CouponBumpClaimedCount(ctx context.Context, tx Conn, couponID string) error {
	q := `UPDATE coupons SET claimed_count = claimed_count + 1 WHERE id = $1`
	_, err := tx.Exec(ctx, q, couponID)
	if err != nil {
		return terror.Error(err)
	}
	return nil
}

func UserCouponExists(ctx context.Context, conn Conn, userID, couponID string) (bool, error) {
	exists := false
	q := `SELECT EXISTS (SELECT 1 FROM user_coupons WHERE user_id = $1 AND coupon_id = $2)`
	err := conn.QueryRow(ctx, q, userID, couponID).Scan(&exists)
	if err != nil {
		return false, terror.Error(err)
	}
	return exists, nil
}

func UserCouponInsert(ctx context.Context, tx Conn, userID, couponID string) error {
	q := `INSERT INTO user_coupons (user_id, coupon_id) VALUES ($1, $2)`
	_, err := tx.Exec(ctx, q, userID, couponID)
	if err != nil {
		return terror.Error(err, "Failed to claim coupon.")
	}
	return nil
}

func UserCouponList(ctx context.Context, conn Conn, userID string) ([]*topup.Coupon, error) {
	coupons := []*topup.Coupon{}
	q := `
		SELECT c.* FROM coupons c
		INNER JOIN user_coupons uc ON uc.coupon_id = c.id
		WHERE uc.user_id = $1
		ORDER BY uc.claimed_at DESC
	`
	err := pgxscan.Select(ctx, conn, &coupons, q, userID)
	if err != nil {
		return nil, terror.Error(err)
	}
	return coupons, nil
}
