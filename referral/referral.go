// Package referral applies the point bonuses configured in the referral
// settings singleton: a signup bonus for the referee, a referrer bonus on
// referee signup, a first-order bonus, and purchase-tier bonuses.
package referral

import (
	"context"
	"topup"
	"topup/db"

	"github.com/ninja-software/terror/v2"
	"github.com/shopspring/decimal"
)

// ApplySignup awards the signup and referrer bonuses and writes the ledger
// record. An unknown, empty, or self-referencing code is skipped silently —
// signup always proceeds. Runs inside the signup transaction.
func ApplySignup(ctx context.Context, tx db.Conn, referee *topup.User, code string) error {
	if code == "" {
		return nil
	}

	referrer, err := db.UserGetByReferralCode(ctx, tx, code)
	if err != nil {
		return err
	}
	if referrer == nil || referrer.ID == referee.ID {
		return nil
	}

	settings, err := db.ReferralSettingsGet(ctx, tx)
	if err != nil {
		return err
	}

	if settings.SignupBonus > 0 {
		err = db.UserPointsCredit(ctx, tx, referee.ID, settings.SignupBonus)
		if err != nil {
			return err
		}
		referee.Points += settings.SignupBonus
	}
	if settings.ReferrerBonus > 0 {
		err = db.UserPointsCredit(ctx, tx, referrer.ID, settings.ReferrerBonus)
		if err != nil {
			return err
		}
	}

	err = db.UserSetReferredBy(ctx, tx, referee.ID, referrer.ID)
	if err != nil {
		return err
	}

	ledger := &topup.Referral{
		ReferrerID:        referrer.ID,
		RefereeID:         referee.ID,
		ReferrerBonusPaid: settings.ReferrerBonus > 0,
	}
	err = db.ReferralInsert(ctx, tx, ledger)
	if err != nil {
		return terror.Error(err, "Failed to record referral.")
	}
	return nil
}

// AwardFirstOrderBonus credits the referrer when their referee places a
// first order. The ledger row is locked, so the bonus pays out at most once.
// Runs inside the checkout transaction.
func AwardFirstOrderBonus(ctx context.Context, tx db.Conn, refereeID string) error {
	ledger, err := db.ReferralGetByRefereeForUpdate(ctx, tx, refereeID)
	if err != nil {
		return err
	}
	if ledger == nil || ledger.FirstOrderBonusPaid {
		return nil
	}

	settings, err := db.ReferralSettingsGet(ctx, tx)
	if err != nil {
		return err
	}
	if settings.FirstOrderBonus > 0 {
		err = db.UserPointsCredit(ctx, tx, ledger.ReferrerID, settings.FirstOrderBonus)
		if err != nil {
			return err
		}
	}
	return db.ReferralSetFirstOrderBonusPaid(ctx, tx, ledger.ID)
}

// AwardPurchaseTierBonus credits the buyer with the highest tier bonus whose
// threshold the order total meets. Called when an order completes.
func AwardPurchaseTierBonus(ctx context.Context, tx db.Conn, userID string, total decimal.Decimal) error {
	settings, err := db.ReferralSettingsGet(ctx, tx)
	if err != nil {
		return err
	}

	bonus := 0
	for _, tier := range settings.PurchaseTiers {
		if total.GreaterThanOrEqual(tier.Threshold) {
			bonus = tier.Bonus
		}
	}
	if bonus == 0 {
		return nil
	}
	return db.UserPointsCredit(ctx, tx, userID, bonus)
}
