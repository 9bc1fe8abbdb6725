package db

import (
	"context"
	"errors"
	"topup"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/ninja-software/terror/v2"
)

func PaymentMethodList(ctx context.Context, conn Conn, activeOnly bool) ([]*topup.PaymentMethod, error) {
	methods := []*topup.PaymentMethod{}
	q := `SELECT * FROM payment_methods WHERE $1 IS FALSE OR active IS TRUE ORDER BY label`
	err := pgxscan.Select(ctx, conn, &methods, q, activeOnly)
	if err != nil {
		return nil, terror.Error(err)
	}
	return methods, nil
}

func PaymentMethodGet(ctx context.Context, conn Conn, id string) (*topup.PaymentMethod, error) {
	method := &topup.PaymentMethod{}
	q := `SELECT * FROM payment_methods WHERE id = $1`
	err := pgxscan.Get(ctx, conn, method, q, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, terror.Error(err)
	}
	return method, nil
}

func PaymentMethodCreate(ctx context.Context, conn Conn, method *topup.PaymentMethod) error {
	method.ID = uuid.Must(uuid.NewV4()).String()
	q := `
		INSERT INTO payment_methods (id, label, account_number, instructions, active)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := conn.Exec(ctx, q, method.ID, method.Label, method.AccountNumber, method.Instructions, method.Active)
	if err != nil {
		return terror.Error(err, "Failed to create payment method.")
	}
	return nil
}

func PaymentMethodUpdate(ctx context.Context, conn Conn, method *topup.PaymentMethod) error {
	q := `UPDATE payment_methods SET label = $2, account_number = $3, instructions = $4, active = $5 WHERE id = $1`
	_, err := conn.Exec(ctx, q, method.ID, method.Label, method.AccountNumber, method.Instructions, method.Active)
	if err != nil {
		return terror.Error(err, "Failed to update payment method.")
	}
	return nil
}

func NoticeList(ctx context.Context, conn Conn, activeOnly bool) ([]*topup.Notice, error) {
	notices := []*topup.Notice{}
	q := `SELECT * FROM notices WHERE $1 IS FALSE OR active IS TRUE ORDER BY created_at DESC`
	err := pgxscan.Select(ctx, conn, &notices, q, activeOnly)
	if err != nil {
		return nil, terror.Error(err)
	}
	return notices, nil
}

func NoticeCreate(ctx context.Context, conn Conn, notice *topup.Notice) error {
	notice.ID = uuid.Must(uuid.NewV4()).String()
	q := `INSERT INTO notices (id, title, body, active) VALUES ($1, $2, $3, $4)`
	_, err := conn.Exec(ctx, q, notice.ID, notice.Title, notice.Body, notice.Active)
	if err != nil {
		return terror.Error(err, "Failed to create notice.")
	}
	return nil
}

func NoticeUpdate(ctx context.Context, conn Conn, notice *topup.Notice) error {
	q := `UPDATE notices SET title = $2, body = $3, active = $4 WHERE id = $1`
	_, err := conn.Exec(ctx, q, notice.ID, notice.Title, notice.Body, notice.Active)
	if err != nil {
		return terror.Error(err, "Failed to update notice.")
	}
	return nil
}
