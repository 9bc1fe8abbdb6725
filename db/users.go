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
	"github.com/shopspring/decimal"
	"github.com/teris-io/shortid"
)

func UserGet(ctx context.Context, conn Conn, userID string) (*topup.User, error) {
	user := &topup.User{}
	q := `SELECT * FROM users WHERE id = $1`
	err := pgxscan.Get(ctx, conn, user, q, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, terror.Error(err)
	}
	return user, nil
}

// UserGetForUpdate locks the user row for the rest of the transaction.
func UserGetForUpdate(ctx context.Context, tx Conn, userID string) (*topup.User, error) {
	user := &topup.User{}
	q := `SELECT * FROM users WHERE id = $1 FOR UPDATE`
	err := pgxscan.Get(ctx, tx, user, q, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, terror.Error(err)
	}
	return user, nil
}

func UserGetByIdentityID(ctx context.Context, conn Conn, identityID string) (*topup.User, error) {
	user := &topup.User{}
	q := `SELECT * FROM users WHERE identity_id = $1`
	err := pgxscan.Get(ctx, conn, user, q, identityID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, terror.Error(err)
	}
	return user, nil
}

func UserGetByReferralCode(ctx context.Context, conn Conn, code string) (*topup.User, error) {
	user := &topup.User{}
	q := `SELECT * FROM users WHERE referral_code = $1`
	err := pgxscan.Get(ctx, conn, user, q, strings.ToLower(strings.TrimSpace(code)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, terror.Error(err)
	}
	return user, nil
}

// UserCreate inserts a new user with a freshly generated referral code.
func UserCreate(ctx context.Context, conn Conn, identityID, name, email string) (*topup.User, error) {
	code, err := newReferralCode(ctx, conn)
	if err != nil {
		return nil, err
	}

	user := &topup.User{
		ID:           uuid.Must(uuid.NewV4()).String(),
		IdentityID:   identityID,
		Name:         name,
		Email:        email,
		ReferralCode: code,
		CreatedAt:    time.Now(),
	}
	q := `
		INSERT INTO users (id, identity_id, name, email, referral_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = conn.Exec(ctx, q, user.ID, user.IdentityID, user.Name, user.Email, user.ReferralCode, user.CreatedAt)
	if err != nil {
		return nil, terror.Error(err, "Failed to create account, please try again or contact support.")
	}
	return user, nil
}

func newReferralCode(ctx context.Context, conn Conn) (string, error) {
	for {
		code, err := shortid.Generate()
		if err != nil {
			return "", terror.Error(err)
		}
		code = strings.ToLower(code)

		exists := false
		q := `SELECT EXISTS (SELECT 1 FROM users WHERE referral_code = $1)`
		err = conn.QueryRow(ctx, q, code).Scan(&exists)
		if err != nil {
			return "", terror.Error(err)
		}
		if !exists {
			return code, nil
		}
	}
}

func UserUpdate(ctx context.Context, conn Conn, user *topup.User) error {
	q := `
		UPDATE users
		SET name = $2, email = $3, wallet_balance = $4, is_admin = $5, points = $6
		WHERE id = $1
	`
	_, err := conn.Exec(ctx, q, user.ID, user.Name, user.Email, user.WalletBalance, user.IsAdmin, user.Points)
	if err != nil {
		return terror.Error(err, "Failed to update account.")
	}
	return nil
}

func UserSetReferredBy(ctx context.Context, conn Conn, userID, referrerID string) error {
	q := `UPDATE users SET referred_by = $2 WHERE id = $1`
	_, err := conn.Exec(ctx, q, userID, referrerID)
	if err != nil {
		return terror.Error(err)
	}
	return nil
}

// UserWalletDebit subtracts amount from the user's balance. The caller must
// hold the row lock and have checked the balance first; the non-negative
// check constraint is the last line of defence.
func UserWalletDebit(ctx context.Context, tx Conn, userID string, amount decimal.Decimal) error {
	q := `UPDATE users SET wallet_balance = wallet_balance - $2 WHERE id = $1`
	_, err := tx.Exec(ctx, q, userID, amount)
	if err != nil {
		return terror.Error(err, "Failed to debit wallet.")
	}
	return nil
}

func UserWalletCredit(ctx context.Context, tx Conn, userID string, amount decimal.Decimal) error {
	q := `UPDATE users SET wallet_balance = wallet_balance + $2 WHERE id = $1`
	_, err := tx.Exec(ctx, q, userID, amount)
	if err != nil {
		return terror.Error(err, "Failed to credit wallet.")
	}
	return nil
}

func UserPointsCredit(ctx context.Context, conn Conn, userID string, points int) error {
	q := `UPDATE users SET points = points + $2 WHERE id = $1`
	_, err := conn.Exec(ctx, q, userID, points)
	if err != nil {
		return terror.Error(err)
	}
	return nil
}

func UserList(ctx context.Context, conn Conn, search string, limit, offset int) ([]*topup.User, error) {
	users := []*topup.User{}
	q := `
		SELECT * FROM users
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	err := pgxscan.Select(ctx, conn, &users, q, search, limit, offset)
	if err != nil {
		return nil, terror.Error(err)
	}
	return users, nil
}

func AdminUserIDs(ctx context.Context, conn Conn) ([]string, error) {
	ids := []string{}
	q := `SELECT id FROM users WHERE is_admin IS TRUE`
	err := pgxscan.Select(ctx, conn, &ids, q)
	if err != nil {
		return nil, terror.Error(err)
	}
	return ids, nil
}
