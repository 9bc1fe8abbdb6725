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

func ReferralSettingsGet(ctx context.Context, conn Conn) (*topup.ReferralSettings, error) {
	settings := &topup.ReferralSettings{}
	q := `SELECT signup_bonus, referrer_bonus, first_order_bonus FROM referral_settings WHERE id IS TRUE`
	err := pgxscan.Get(ctx, conn, settings, q)
	if err != nil {
		return nil, terror.Error(err)
	}

	tiers := []*topup.ReferralPurchaseTier{}
	q = `SELECT threshold, bonus FROM referral_purchase_tiers ORDER BY threshold`
	err = pgxscan.Select(ctx, conn, &tiers, q)
	if err != nil {
		return nil, terror.Error(err)
	}
	settings.PurchaseTiers = tiers
	return settings, nil
}

func ReferralSettingsUpdate(ctx context.Context, conn Conn, settings *topup.ReferralSettings) error {
	return BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		q := `
			UPDATE referral_settings
			SET signup_bonus = $1, referrer_bonus = $2, first_order_bonus = $3
			WHERE id IS TRUE
		`
		_, err := tx.Exec(ctx, q, settings.SignupBonus, settings.ReferrerBonus, settings.FirstOrderBonus)
		if err != nil {
			return terror.Error(err, "Failed to update referral settings.")
		}

		_, err = tx.Exec(ctx, `DELETE FROM referral_purchase_tiers`)
		if err != nil {
			return terror.Error(err)
		}
		for _, tier := range settings.PurchaseTiers {
			_, err = tx.Exec(ctx,
				`INSERT INTO referral_purchase_tiers (threshold, bonus) VALUES ($1, $2)`,
				tier.Threshold, tier.Bonus,
			)
			if err != nil {
				return terror.Error(err, "Failed to update referral purchase tiers.")
			}
		}
		return nil
	})
}

func ReferralInsert(ctx context.Context, tx Conn, referral *topup.Referral) error {
	referral.ID = uuid.Must(uuid.NewV4()).String()
	referral.CreatedAt = time.Now()
	q := `
		INSERT INTO referrals (id, referrer_id, referee_id, referrer_bonus_paid, first_order_bonus_paid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.Exec(ctx, q,
		referral.ID, referral.ReferrerID, referral.RefereeID,
		referral.ReferrerBonusPaid, referral.FirstOrderBonusPaid, referral.CreatedAt,
	)
	if err != nil {
		return terror.Error(err)
	}
	return nil
}

// ReferralGetByRefereeForUpdate locks the ledger row so a bonus flag flips
// exactly once.
func ReferralGetByRefereeForUpdate(ctx context.Context, tx Conn, refereeID string) (*topup.Referral, error) {
	referral := &topup.Referral{}
	q := `SELECT * FROM referrals WHERE referee_id = $1 FOR UPDATE`
	err := pgxscan.Get(ctx, tx, referral, q, refereeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, terror.Error(err)
	}
	return referral, nil
}

func ReferralSetFirstOrderBonusPaid(ctx context.Context, tx Conn, referralID string) error {
	q := `UPDATE referrals SET first_order_bonus_paid = TRUE WHERE id = $1`
	_, err := tx.Exec(ctx, q, referralID)
	if err != nil {
		return terror.Error(err)
	}
	return nil
}

func ReferralListByReferrer(ctx context.Context, conn Conn, referrerID string) ([]*topup.Referral, error) {
	referrals := []*topup.Referral{}
	q := `SELECT * FROM referrals WHERE referrer_id = $1 ORDER BY created_at DESC`
	err := pgxscan.Select(ctx, conn, &referrals, q, referrerID)
	if err != nil {
		return nil, terror.Error(err)
	}
	return referrals, nil
}
