package db

import (
	"context"
	"errors"
	"time"
	"topup"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/ninja-software/terror/v2"
)

func OrderGet(ctx context.Context, conn Conn, orderID string) (*topup.Order, error) {
	order := &topup.Order{}
	q := `SELECT * FROM orders WHERE id = $1`
	err := pgxscan.Get(ctx, conn, order, q, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, terror.Error(err)
	}
	return order, nil
}

// OrderGetForUpdate locks the order row for a status transition.
func OrderGetForUpdate(ctx context.Context, tx Conn, orderID string) (*topup.Order, error) {
	order := &topup.Order{}
	q := `SELECT * FROM orders WHERE id = $1 FOR UPDATE`
	err := pgxscan.Get(ctx, tx, order, q, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, terror.Error(err)
	}
	return order, nil
}

func OrderInsert(ctx context.Context, tx Conn, order *topup.Order) error {
	if order.ID == "" {
		order.ID = uuid.Must(uuid.NewV4()).String()
	}
	if order.Status == "" {
		order.Status = topup.OrderStatusPending
	}
	order.CreatedAt = time.Now()
	q := `
		INSERT INTO orders (
			id, user_id, card_id, option_id, option_label, quantity, game_uid,
			payment_method, coupon_id, unit_price, total, status,
			sender_phone, payment_txid, payment_method_name, idempotency_key, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := tx.Exec(ctx, q,
		order.ID, order.UserID, order.CardID, order.OptionID, order.OptionLabel, order.Quantity, order.GameUID,
		order.PaymentMethod, order.CouponID, order.UnitPrice, order.Total, order.Status,
		order.SenderPhone, order.PaymentTXID, order.PaymentMethodName, order.IdempotencyKey, order.CreatedAt,
	)
	if err != nil {
		return terror.Error(err, "Failed to create order.")
	}
	return nil
}

func OrderListByUser(ctx context.Context, conn Conn, userID string) ([]*topup.Order, error) {
	orders := []*topup.Order{}
	q := `SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	err := pgxscan.Select(ctx, conn, &orders, q, userID)
	if err != nil {
		return nil, terror.Error(err)
	}
	return orders, nil
}

func OrderList(ctx context.Context, conn Conn, status topup.OrderStatus, limit, offset int) ([]*topup.Order, error) {
	orders := []*topup.Order{}
	q := `
		SELECT * FROM orders
		WHERE $1 = '' OR status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	err := pgxscan.Select(ctx, conn, &orders, q, string(status), limit, offset)
	if err != nil {
		return nil, terror.Error(err)
	}
	return orders, nil
}

// OrdersByIdempotencyKey returns the orders the user's own earlier
// submission stored under key, so a retried submission does not
// double-charge. Each line item of a submission stores "<key>:<line>";
// starts_with compares the client-supplied key literally, never as a
// pattern.
func OrdersByIdempotencyKey(ctx context.Context, conn Conn, userID, key string) ([]*topup.Order, error) {
	orders := []*topup.Order{}
	q := `
		SELECT * FROM orders
		WHERE user_id = $1 AND starts_with(idempotency_key, $2 || ':')
		ORDER BY created_at
	`
	err := pgxscan.Select(ctx, conn, &orders, q, userID, key)
	if err != nil {
		return nil, terror.Error(err)
	}
	return orders, nil
}

func OrderSetStatus(ctx context.Context, conn Conn, orderID string, status topup.OrderStatus, reason string) error {
	q := `UPDATE orders SET status = $2, reason = NULLIF($3, '') WHERE id = $1`
	_, err := conn.Exec(ctx, q, orderID, status, reason)
	if err != nil {
		return terror.Error(err, "Failed to update order status.")
	}
	return nil
}

func OrderSetTierBonusPaid(ctx context.Context, tx Conn, orderID string) error {
	q := `UPDATE orders SET tier_bonus_paid = TRUE WHERE id = $1`
	_, err := tx.Exec(ctx, q, orderID)
	if err != nil {
		return terror.Error(err)
	}
	return nil
}

func OrderCountByUser(ctx context.Context, conn Conn, userID string) (int, error) {
	count := 0
	q := `SELECT COUNT(*) FROM orders WHERE user_id = $1`
	err := conn.QueryRow(ctx, q, userID).Scan(&count)
	if err != nil {
		return 0, terror.Error(err)
	}
	return count, nil
}

// CouponOrderCounts returns how many orders used the coupon overall and how
// many of those belong to the given user. Run inside the checkout
// transaction after the coupon row is locked.
func CouponOrderCounts(ctx context.Context, tx Conn, couponID, userID string) (total int, byUser int, err error) {
	q := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE user_id = $2)
		FROM orders
		WHERE coupon_id = $1 AND status != 'Cancelled'
	`
	err = tx.QueryRow(ctx, q, couponID, userID).Scan(&total, &byUser)
	if err != nil {
		return 0, 0, terror.Error(err)
	}
	return total, byUser, nil
}
