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

func WalletRequestInsert(ctx context.Context, conn Conn, req *topup.WalletTopUpRequest) error {
	req.ID = uuid.Must(uuid.NewV4()).String()
	req.Status = topup.WalletRequestStatusPending
	req.CreatedAt = time.Now()
	q := `
		INSERT INTO wallet_topup_requests (id, user_id, amount, sender_phone, payment_txid, method, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := conn.Exec(ctx, q,
		req.ID, req.UserID, req.Amount, req.SenderPhone, req.PaymentTXID, req.Method, req.Status, req.CreatedAt,
	)
	if err != nil {
		return terror.Error(err, "Failed to submit top up request.")
	}
	return nil
}

// WalletRequestGetForUpdate locks the request row so it can transition
// exactly once.
func WalletRequestGetForUpdate(ctx context.Context, tx Conn, requestID string) (*topup.WalletTopUpRequest, error) {
	req := &topup.WalletTopUpRequest{}
	q := `SELECT * FROM wallet_topup_requests WHERE id = $1 FOR UPDATE`
	err := pgxscan.Get(ctx, tx, req, q, requestID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, terror.Error(err)
	}
	return req, nil
}

func WalletRequestSetStatus(ctx context.Context, tx Conn, requestID string, status topup.WalletRequestStatus) error {
	q := `UPDATE wallet_topup_requests SET status = $2, processed_at = NOW() WHERE id = $1`
	_, err := tx.Exec(ctx, q, requestID, status)
	if err != nil {
		return terror.Error(err)
	}
	return nil
}

func WalletRequestListByUser(ctx context.Context, conn Conn, userID string) ([]*topup.WalletTopUpRequest, error) {
	reqs := []*topup.WalletTopUpRequest{}
	q := `SELECT * FROM wallet_topup_requests WHERE user_id = $1 ORDER BY created_at DESC`
	err := pgxscan.Select(ctx, conn, &reqs, q, userID)
	if err != nil {
		return nil, terror.Error(err)
	}
	return reqs, nil
}

func WalletRequestList(ctx context.Context, conn Conn, status topup.WalletRequestStatus) ([]*topup.WalletTopUpRequest, error) {
	reqs := []*topup.WalletTopUpRequest{}
	q := `
		SELECT * FROM wallet_topup_requests
		WHERE $1 = '' OR status = $1
		ORDER BY created_at DESC
	`
	err := pgxscan.Select(ctx, conn, &reqs, q, string(status))
	if err != nil {
		return nil, terror.Error(err)
	}
	return reqs, nil
}
