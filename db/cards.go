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

func CategoryList(ctx context.Context, conn Conn) ([]*topup.Category, error) {
	categories := []*topup.Category{}
	q := `SELECT * FROM categories ORDER BY sort_order, label`
	err := pgxscan.Select(ctx, conn, &categories, q)
	if err != nil {
		return nil, terror.Error(err)
	}
	return categories, nil
}

func CategoryCreate(ctx context.Context, conn Conn, category *topup.Category) error {
	category.ID = uuid.Must(uuid.NewV4()).String()
	q := `INSERT INTO categories (id, label, sort_order) VALUES ($1, $2, $3)`
	_, err := conn.Exec(ctx, q, category.ID, category.Label, category.SortOrder)
	if err != nil {
		return terror.Error(err, "Failed to create category.")
	}
	return nil
}

func CardList(ctx context.Context, conn Conn, activeOnly bool) ([]*topup.TopUpCard, error) {
	cards := []*topup.TopUpCard{}
	q := `SELECT * FROM top_up_cards WHERE $1 IS FALSE OR active IS TRUE ORDER BY created_at DESC`
	err := pgxscan.Select(ctx, conn, &cards, q, activeOnly)
	if err != nil {
		return nil, terror.Error(err)
	}
	for _, card := range cards {
		options, err := CardOptionList(ctx, conn, card.ID)
		if err != nil {
			return nil, err
		}
		card.Options = options
	}
	return cards, nil
}

func CardGet(ctx context.Context, conn Conn, cardID string) (*topup.TopUpCard, error) {
	card := &topup.TopUpCard{}
	q := `SELECT * FROM top_up_cards WHERE id = $1`
	err := pgxscan.Get(ctx, conn, card, q, cardID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, terror.Error(err)
	}
	options, err := CardOptionList(ctx, conn, card.ID)
	if err != nil {
		return nil, err
	}
	card.Options = options
	return card, nil
}

func CardCreate(ctx context.Context, conn Conn, card *topup.TopUpCard) error {
	card.ID = uuid.Must(uuid.NewV4()).String()
	card.CreatedAt = time.Now()
	q := `
		INSERT INTO top_up_cards (id, category_id, title, game_name, image_url, uid_field_label, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := conn.Exec(ctx, q,
		card.ID, card.CategoryID, card.Title, card.GameName, card.ImageURL, card.UIDFieldLabel, card.Active, card.CreatedAt,
	)
	if err != nil {
		return terror.Error(err, "Failed to create card.")
	}
	return nil
}

func CardUpdate(ctx context.Context, conn Conn, card *topup.TopUpCard) error {
	q := `
		UPDATE top_up_cards
		SET category_id = $2, title = $3, game_name = $4, image_url = $5, uid_field_label = $6, active = $7
		WHERE id = $1
	`
	_, err := conn.Exec(ctx, q,
		card.ID, card.CategoryID, card.Title, card.GameName, card.ImageURL, card.UIDFieldLabel, card.Active,
	)
	if err != nil {
		return terror.Error(err, "Failed to update card.")
	}
	return nil
}

func CardOptionList(ctx context.Context, conn Conn, cardID string) ([]*topup.CardOption, error) {
	options := []*topup.CardOption{}
	q := `SELECT * FROM card_options WHERE card_id = $1 ORDER BY price`
	err := pgxscan.Select(ctx, conn, &options, q, cardID)
	if err != nil {
		return nil, terror.Error(err)
	}
	return options, nil
}

func CardOptionGet(ctx context.Context, conn Conn, optionID string) (*topup.CardOption, error) {
	option := &topup.CardOption{}
	q := `SELECT * FROM card_options WHERE id = $1`
	err := pgxscan.Get(ctx, conn, option, q, optionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, terror.Error(err)
	}
	return option, nil
}

// CardOptionGetForUpdate locks the option row so concurrent checkouts queue
// on the stock counter.
func CardOptionGetForUpdate(ctx context.Context, tx Conn, optionID string) (*topup.CardOption, error) {
	option := &topup.CardOption{}
	q := `SELECT * FROM card_options WHERE id = $1 FOR UPDATE`
	err := pgxscan.Get(ctx, tx, option, q, optionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, terror.Error(err)
	}
	return option, nil
}

func CardOptionCreate(ctx context.Context, conn Conn, option *topup.CardOption) error {
	option.ID = uuid.Must(uuid.NewV4()).String()
	q := `
		INSERT INTO card_options (id, card_id, label, price, stock_limit)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := conn.Exec(ctx, q, option.ID, option.CardID, option.Label, option.Price, option.StockLimit)
	if err != nil {
		return terror.Error(err, "Failed to create card option.")
	}
	return nil
}

func CardOptionUpdate(ctx context.Context, conn Conn, option *topup.CardOption) error {
	q := `UPDATE card_options SET label = $2, price = $3, stock_limit = $4 WHERE id = $1`
	_, err := conn.Exec(ctx, q, option.ID, option.Label, option.Price, option.StockLimit)
	if err != nil {
		return terror.Error(err, "Failed to update card option.")
	}
	return nil
}

func CardOptionBumpSold(ctx context.Context, tx Conn, optionID string, quantity int) error {
	q := `UPDATE card_options SET sold = sold + $2 WHERE id = $1`
	_, err := tx.Exec(ctx, q, optionID, quantity)
	if err != nil {
		return terror.Error(err)
	}
	return nil
}
