package db

import (
	"context"
	"errors"
	"strings"
	"topup"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgx/v4"
	"github.com/ninja-software/terror/v2"
)

func TelegramProfileGet(ctx context.Context, conn Conn, userID string) (*topup.TelegramProfile, error) {
	profile := &topup.TelegramProfile{}
	q := `SELECT * FROM telegram_profiles WHERE user_id = $1`
	err := pgxscan.Get(ctx, conn, profile, q, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, terror.Error(err)
	}
	return profile, nil
}

func TelegramProfileGetByShortcode(ctx context.Context, conn Conn, shortcode string) (*topup.TelegramProfile, error) {
	profile := &topup.TelegramProfile{}
	q := `SELECT * FROM telegram_profiles WHERE shortcode = $1 AND telegram_id IS NULL`
	err := pgxscan.Get(ctx, conn, profile, q, strings.ToLower(shortcode))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, terror.Error(err)
	}
	return profile, nil
}

func TelegramProfileShortcodeExists(ctx context.Context, conn Conn, shortcode string) (bool, error) {
	exists := false
	q := `SELECT EXISTS (SELECT 1 FROM telegram_profiles WHERE shortcode = $1)`
	err := conn.QueryRow(ctx, q, strings.ToLower(shortcode)).Scan(&exists)
	if err != nil {
		return false, terror.Error(err)
	}
	return exists, nil
}

func TelegramProfileUpsert(ctx context.Context, conn Conn, profile *topup.TelegramProfile) error {
	q := `
		INSERT INTO telegram_profiles (user_id, shortcode, telegram_id, alerts_enabled)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET shortcode = $2, telegram_id = $3, alerts_enabled = $4
	`
	_, err := conn.Exec(ctx, q, profile.UserID, strings.ToLower(profile.Shortcode), profile.TelegramID, profile.AlertsEnabled)
	if err != nil {
		return terror.Error(err, "Failed to save telegram profile.")
	}
	return nil
}

func TelegramProfileSetID(ctx context.Context, conn Conn, userID string, telegramID int64) error {
	q := `UPDATE telegram_profiles SET telegram_id = $2 WHERE user_id = $1`
	_, err := conn.Exec(ctx, q, userID, telegramID)
	if err != nil {
		return terror.Error(err)
	}
	return nil
}

// TelegramAlertChatIDs lists every registered admin chat that has alerts on.
func TelegramAlertChatIDs(ctx context.Context, conn Conn) ([]int64, error) {
	ids := []int64{}
	q := `
		SELECT tp.telegram_id
		FROM telegram_profiles tp
		INNER JOIN users u ON u.id = tp.user_id
		WHERE u.is_admin IS TRUE AND tp.alerts_enabled IS TRUE AND tp.telegram_id IS NOT NULL
	`
	err := pgxscan.Select(ctx, conn, &ids, q)
	if err != nil {
		return nil, terror.Error(err)
	}
	return ids, nil
}
