// Package wallet handles manual wallet top-up requests: a user files a
// request after sending money out of band, an admin approves or rejects it
// exactly once.
package wallet

import (
	"context"
	"fmt"
	"topup"
	"topup/db"

	"github.com/jackc/pgx/v4"
	"github.com/ninja-software/terror/v2"
	"github.com/shopspring/decimal"
)

// SubmitRequest files a pending top-up request.
func SubmitRequest(ctx context.Context, conn db.Conn, userID string, amount decimal.Decimal, senderPhone, paymentTXID, method string) (*topup.WalletTopUpRequest, error) {
	if !amount.IsPositive() {
		return nil, terror.Error(fmt.Errorf("non-positive top up amount %s", amount), "Top up amount must be greater than zero.")
	}
	if senderPhone == "" || paymentTXID == "" || method == "" {
		return nil, terror.Error(fmt.Errorf("missing top up request fields"), "Sender phone, transaction ID and payment method are required.")
	}

	req := &topup.WalletTopUpRequest{
		UserID:      userID,
		Amount:      amount,
		SenderPhone: senderPhone,
		PaymentTXID: paymentTXID,
		Method:      method,
	}
	err := db.WalletRequestInsert(ctx, conn, req)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Process transitions a pending request exactly once. Approving credits the
// wallet and marks the request approved in the same transaction; rejecting
// only flips the status. A request that already left Pending fails with
// "already processed" and writes nothing.
func Process(ctx context.Context, conn db.Conn, requestID string, approve bool) (*topup.WalletTopUpRequest, error) {
	var processed *topup.WalletTopUpRequest
	err := db.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		req, err := db.WalletRequestGetForUpdate(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return terror.Error(fmt.Errorf("wallet request not found: %s", requestID), "Top up request not found.")
		}
		if req.Status != topup.WalletRequestStatusPending {
			return terror.Error(
				fmt.Errorf("wallet request %s already %s", req.ID, req.Status),
				"This request has already been processed.",
			)
		}

		status := topup.WalletRequestStatusRejected
		if approve {
			user, err := db.UserGetForUpdate(ctx, tx, req.UserID)
			if err != nil {
				return err
			}
			if user == nil {
				return terror.Error(fmt.Errorf("user not found: %s", req.UserID), "Account not found, no credit applied.")
			}
			err = db.UserWalletCredit(ctx, tx, user.ID, req.Amount)
			if err != nil {
				return err
			}
			status = topup.WalletRequestStatusApproved
		}

		err = db.WalletRequestSetStatus(ctx, tx, req.ID, status)
		if err != nil {
			return err
		}
		req.Status = status
		processed = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return processed, nil
}
