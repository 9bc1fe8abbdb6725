// Package seed fills a fresh database with enough data to click through the
// storefront: categories, a few cards with options, payment methods, referral
// settings and an admin account.
package seed

import (
	"context"
	"fmt"
	"topup"
	"topup/db"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/ninja-software/terror/v2"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

type Seeder struct {
	Conn *pgxpool.Pool
}

// NewSeeder returns a new Seeder
func NewSeeder(conn *pgxpool.Pool) *Seeder {
	s := &Seeder{conn}
	return s
}

// Run for database spin up
func (s *Seeder) Run() error {
	ctx := context.Background()

	fmt.Println("Seed categories and cards")
	err := s.cards(ctx)
	if err != nil {
		return terror.Error(err)
	}

	fmt.Println("Seed payment methods")
	err = s.paymentMethods(ctx)
	if err != nil {
		return terror.Error(err)
	}

	fmt.Println("Seed referral settings")
	err = s.referralSettings(ctx)
	if err != nil {
		return terror.Error(err)
	}

	fmt.Println("Seed admin account")
	err = s.adminUser(ctx)
	if err != nil {
		return terror.Error(err)
	}

	fmt.Println("Seed complete!")
	return nil
}

var categories = []*topup.Category{
	{Label: "Mobile Games", SortOrder: 1},
	{Label: "PC Games", SortOrder: 2},
	{Label: "Gift Cards", SortOrder: 3},
}

type seedCard struct {
	card    *topup.TopUpCard
	options []*topup.CardOption
}

func seedCards(mobileCategoryID string) []*seedCard {
	return []*seedCard{
		{
			card: &topup.TopUpCard{
				CategoryID:    null.StringFrom(mobileCategoryID),
				Title:         "Mobile Legends Diamonds",
				GameName:      "mobile-legends",
				UIDFieldLabel: "User ID (Zone ID)",
				Active:        true,
			},
			options: []*topup.CardOption{
				{Label: "86 Diamonds", Price: decimal.NewFromInt(1500)},
				{Label: "172 Diamonds", Price: decimal.NewFromInt(2900)},
				{Label: "257 Diamonds", Price: decimal.NewFromInt(4300)},
				{Label: "Twilight Pass", Price: decimal.NewFromInt(11500), StockLimit: null.IntFrom(50)},
			},
		},
		{
			card: &topup.TopUpCard{
				CategoryID:    null.StringFrom(mobileCategoryID),
				Title:         "PUBG Mobile UC",
				GameName:      "pubg-mobile",
				UIDFieldLabel: "Character ID",
				Active:        true,
			},
			options: []*topup.CardOption{
				{Label: "60 UC", Price: decimal.NewFromInt(1800)},
				{Label: "325 UC", Price: decimal.NewFromInt(8500)},
				{Label: "660 UC", Price: decimal.NewFromInt(16500)},
			},
		},
	}
}

func (s *Seeder) cards(ctx context.Context) error {
	for _, category := range categories {
		err := db.CategoryCreate(ctx, s.Conn, category)
		if err != nil {
			return terror.Error(err)
		}
	}

	for _, sc := range seedCards(categories[0].ID) {
		err := db.CardCreate(ctx, s.Conn, sc.card)
		if err != nil {
			return terror.Error(err)
		}
		for _, option := range sc.options {
			option.CardID = sc.card.ID
			err = db.CardOptionCreate(ctx, s.Conn, option)
			if err != nil {
				return terror.Error(err)
			}
		}
	}
	return nil
}

var paymentMethods = []*topup.PaymentMethod{
	{
		Label:         "KPay",
		AccountNumber: "09790000001",
		Instructions:  null.StringFrom("Transfer the exact amount, then submit the last 6 digits of the transaction ID."),
		Active:        true,
	},
	{
		Label:         "Wave Money",
		AccountNumber: "09790000002",
		Instructions:  null.StringFrom("Transfer the exact amount, then submit the last 6 digits of the transaction ID."),
		Active:        true,
	},
}

func (s *Seeder) paymentMethods(ctx context.Context) error {
	for _, method := range paymentMethods {
		err := db.PaymentMethodCreate(ctx, s.Conn, method)
		if err != nil {
			return terror.Error(err)
		}
	}
	return nil
}

func (s *Seeder) referralSettings(ctx context.Context) error {
	settings := &topup.ReferralSettings{
		SignupBonus:     50,
		ReferrerBonus:   100,
		FirstOrderBonus: 200,
		PurchaseTiers: []*topup.ReferralPurchaseTier{
			{Threshold: decimal.NewFromInt(5000), Bonus: 25},
			{Threshold: decimal.NewFromInt(20000), Bonus: 120},
			{Threshold: decimal.NewFromInt(50000), Bonus: 350},
		},
	}
	return db.ReferralSettingsUpdate(ctx, s.Conn, settings)
}

func (s *Seeder) adminUser(ctx context.Context) error {
	admin, err := db.UserCreate(ctx, s.Conn, "seed-admin", "Store Admin", "admin@example.com")
	if err != nil {
		return terror.Error(err)
	}
	admin.IsAdmin = true
	return db.UserUpdate(ctx, s.Conn, admin)
}
