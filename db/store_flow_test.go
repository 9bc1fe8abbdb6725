package db_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"topup"
	"topup/checkout"
	"topup/coupon"
	"topup/db"
	"topup/referral"
	"topup/wallet"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

func testUser(t *testing.T, ctx context.Context, balance int64) *topup.User {
	t.Helper()
	identityID := uuid.Must(uuid.NewV4()).String()
	user, err := db.UserCreate(ctx, conn, identityID, "Test User", identityID+"@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if balance > 0 {
		err = db.UserWalletCredit(ctx, conn, user.ID, decimal.NewFromInt(balance))
		if err != nil {
			t.Fatal(err)
		}
		user.WalletBalance = decimal.NewFromInt(balance)
	}
	return user
}

func testCard(t *testing.T, ctx context.Context, prices ...int64) *topup.TopUpCard {
	t.Helper()
	card := &topup.TopUpCard{
		Title:         "Test Diamonds",
		GameName:      "test-game",
		UIDFieldLabel: "User ID",
		Active:        true,
	}
	err := db.CardCreate(ctx, conn, card)
	if err != nil {
		t.Fatal(err)
	}
	for _, price := range prices {
		option := &topup.CardOption{
			CardID: card.ID,
			Label:  "Test Pack",
			Price:  decimal.NewFromInt(price),
		}
		err = db.CardOptionCreate(ctx, conn, option)
		if err != nil {
			t.Fatal(err)
		}
		card.Options = append(card.Options, option)
	}
	return card
}

func TestCheckoutWithWallet(t *testing.T) {
	ctx := context.Background()
	dbFlush(ctx)

	t.Run("purchase_success", func(t *testing.T) {
		user := testUser(t, ctx, 5000)
		card := testCard(t, ctx, 1000, 1500)

		result, err := checkout.PurchaseWithWallet(ctx, conn, &checkout.Request{
			UserID: user.ID,
			Items: []checkout.LineItem{
				{CardID: card.ID, OptionID: card.Options[0].ID, Quantity: 2},
				{CardID: card.ID, OptionID: card.Options[1].ID, Quantity: 1},
			},
			GameUID: "12345",
		})
		if err != nil {
			t.Fatal(err)
		}

		if len(result.Orders) != 2 {
			t.Fatalf("wanted 2 orders, got %d", len(result.Orders))
		}
		if !result.Total.Equal(decimal.NewFromInt(3500)) {
			t.Fatalf("wanted total 3500, got %s", result.Total)
		}

		sum := decimal.Zero
		for _, order := range result.Orders {
			if order.Status != topup.OrderStatusPending {
				t.Fatalf("wanted status Pending, got %s", order.Status)
			}
			sum = sum.Add(order.Total)
		}
		if !sum.Equal(result.Total) {
			t.Fatalf("order totals sum to %s, wanted %s", sum, result.Total)
		}

		after, err := db.UserGet(ctx, conn, user.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !after.WalletBalance.Equal(decimal.NewFromInt(1500)) {
			t.Fatalf("wanted balance 1500, got %s", after.WalletBalance)
		}
	})

	t.Run("insufficient_balance", func(t *testing.T) {
		user := testUser(t, ctx, 500)
		card := testCard(t, ctx, 1000)

		_, err := checkout.PurchaseWithWallet(ctx, conn, &checkout.Request{
			UserID:  user.ID,
			Items:   []checkout.LineItem{{CardID: card.ID, OptionID: card.Options[0].ID, Quantity: 1}},
			GameUID: "12345",
		})
		if err == nil {
			t.Fatal("wanted insufficient balance error, got nil")
		}

		orders, err := db.OrderListByUser(ctx, conn, user.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(orders) != 0 {
			t.Fatalf("wanted no orders written, got %d", len(orders))
		}

		after, err := db.UserGet(ctx, conn, user.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !after.WalletBalance.Equal(decimal.NewFromInt(500)) {
			t.Fatalf("balance changed on failed checkout: %s", after.WalletBalance)
		}
	})

	t.Run("idempotent_replay", func(t *testing.T) {
		user := testUser(t, ctx, 5000)
		card := testCard(t, ctx, 1000)

		req := &checkout.Request{
			UserID:         user.ID,
			Items:          []checkout.LineItem{{CardID: card.ID, OptionID: card.Options[0].ID, Quantity: 1}},
			GameUID:        "12345",
			IdempotencyKey: uuid.Must(uuid.NewV4()).String(),
		}
		first, err := checkout.PurchaseWithWallet(ctx, conn, req)
		if err != nil {
			t.Fatal(err)
		}
		if first.AlreadyProcessed {
			t.Fatal("first submission flagged as already processed")
		}

		second, err := checkout.PurchaseWithWallet(ctx, conn, req)
		if err != nil {
			t.Fatal(err)
		}
		if !second.AlreadyProcessed {
			t.Fatal("replay not flagged as already processed")
		}
		if len(second.Orders) != 1 || second.Orders[0].ID != first.Orders[0].ID {
			t.Fatal("replay returned different orders")
		}

		after, err := db.UserGet(ctx, conn, user.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !after.WalletBalance.Equal(decimal.NewFromInt(4000)) {
			t.Fatalf("wallet debited twice: balance %s", after.WalletBalance)
		}
	})

	t.Run("stock_limit", func(t *testing.T) {
		user := testUser(t, ctx, 50000)
		card := testCard(t, ctx)
		option := &topup.CardOption{
			CardID:     card.ID,
			Label:      "Limited Pass",
			Price:      decimal.NewFromInt(1000),
			StockLimit: null.IntFrom(1),
		}
		err := db.CardOptionCreate(ctx, conn, option)
		if err != nil {
			t.Fatal(err)
		}

		_, err = checkout.PurchaseWithWallet(ctx, conn, &checkout.Request{
			UserID:  user.ID,
			Items:   []checkout.LineItem{{CardID: card.ID, OptionID: option.ID, Quantity: 2}},
			GameUID: "12345",
		})
		if err == nil {
			t.Fatal("wanted sold out error, got nil")
		}

		_, err = checkout.PurchaseWithWallet(ctx, conn, &checkout.Request{
			UserID:  user.ID,
			Items:   []checkout.LineItem{{CardID: card.ID, OptionID: option.ID, Quantity: 1}},
			GameUID: "12345",
		})
		if err != nil {
			t.Fatal(err)
		}

		after, err := db.CardOptionGet(ctx, conn, option.ID)
		if err != nil {
			t.Fatal(err)
		}
		if after.Sold != 1 {
			t.Fatalf("wanted sold 1, got %d", after.Sold)
		}

		// stock exhausted now
		_, err = checkout.PurchaseWithWallet(ctx, conn, &checkout.Request{
			UserID:  user.ID,
			Items:   []checkout.LineItem{{CardID: card.ID, OptionID: option.ID, Quantity: 1}},
			GameUID: "12345",
		})
		if err == nil {
			t.Fatal("wanted sold out error on exhausted stock, got nil")
		}
	})

	t.Run("stock_limit_across_lines", func(t *testing.T) {
		user := testUser(t, ctx, 50000)
		card := testCard(t, ctx)
		option := &topup.CardOption{
			CardID:     card.ID,
			Label:      "Limited Pack",
			Price:      decimal.NewFromInt(1000),
			StockLimit: null.IntFrom(3),
		}
		err := db.CardOptionCreate(ctx, conn, option)
		if err != nil {
			t.Fatal(err)
		}

		// the same option on two lines, together over the limit
		_, err = checkout.PurchaseWithWallet(ctx, conn, &checkout.Request{
			UserID: user.ID,
			Items: []checkout.LineItem{
				{CardID: card.ID, OptionID: option.ID, Quantity: 2},
				{CardID: card.ID, OptionID: option.ID, Quantity: 2},
			},
			GameUID: "12345",
		})
		if err == nil {
			t.Fatal("wanted sold out error for combined quantity, got nil")
		}
		if !strings.Contains(err.Error(), "sold out") {
			t.Fatalf("unexpected error: %s", err)
		}

		// within the limit the split succeeds
		_, err = checkout.PurchaseWithWallet(ctx, conn, &checkout.Request{
			UserID: user.ID,
			Items: []checkout.LineItem{
				{CardID: card.ID, OptionID: option.ID, Quantity: 2},
				{CardID: card.ID, OptionID: option.ID, Quantity: 1},
			},
			GameUID: "12345",
		})
		if err != nil {
			t.Fatal(err)
		}

		after, err := db.CardOptionGet(ctx, conn, option.ID)
		if err != nil {
			t.Fatal(err)
		}
		if after.Sold != 3 {
			t.Fatalf("wanted sold 3, got %d", after.Sold)
		}
	})
}

func TestIdempotencyKeyScoping(t *testing.T) {
	ctx := context.Background()
	dbFlush(ctx)

	card := testCard(t, ctx, 1000)
	alice := testUser(t, ctx, 5000)
	bob := testUser(t, ctx, 5000)

	key := uuid.Must(uuid.NewV4()).String()
	first, err := checkout.PurchaseWithWallet(ctx, conn, &checkout.Request{
		UserID:         alice.ID,
		Items:          []checkout.LineItem{{CardID: card.ID, OptionID: card.Options[0].ID, Quantity: 1}},
		GameUID:        "12345",
		IdempotencyKey: key,
	})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("key_scoped_to_user", func(t *testing.T) {
		// another user reusing the same key gets their own fresh order
		result, err := checkout.PurchaseWithWallet(ctx, conn, &checkout.Request{
			UserID:         bob.ID,
			Items:          []checkout.LineItem{{CardID: card.ID, OptionID: card.Options[0].ID, Quantity: 1}},
			GameUID:        "67890",
			IdempotencyKey: key,
		})
		if err != nil {
			t.Fatal(err)
		}
		if result.AlreadyProcessed {
			t.Fatal("another user's key treated as a replay")
		}
		if len(result.Orders) != 1 || result.Orders[0].ID == first.Orders[0].ID {
			t.Fatal("replay returned another user's order")
		}
		if result.Orders[0].UserID != bob.ID {
			t.Fatalf("order written for wrong user: %s", result.Orders[0].UserID)
		}

		after, err := db.UserGet(ctx, conn, bob.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !after.WalletBalance.Equal(decimal.NewFromInt(4000)) {
			t.Fatalf("wanted balance 4000, got %s", after.WalletBalance)
		}
	})

	t.Run("wildcard_key_is_literal", func(t *testing.T) {
		user := testUser(t, ctx, 5000)

		// "%" must not match stored keys as a pattern
		result, err := checkout.PurchaseWithWallet(ctx, conn, &checkout.Request{
			UserID:         user.ID,
			Items:          []checkout.LineItem{{CardID: card.ID, OptionID: card.Options[0].ID, Quantity: 1}},
			GameUID:        "12345",
			IdempotencyKey: "%",
		})
		if err != nil {
			t.Fatal(err)
		}
		if result.AlreadyProcessed {
			t.Fatal("wildcard key matched other orders")
		}
		if len(result.Orders) != 1 || result.Orders[0].UserID != user.ID {
			t.Fatal("wanted one fresh order for the caller")
		}

		after, err := db.UserGet(ctx, conn, user.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !after.WalletBalance.Equal(decimal.NewFromInt(4000)) {
			t.Fatalf("purchase skipped: balance %s", after.WalletBalance)
		}

		// the literal key still replays for its owner
		replay, err := checkout.PurchaseWithWallet(ctx, conn, &checkout.Request{
			UserID:         user.ID,
			Items:          []checkout.LineItem{{CardID: card.ID, OptionID: card.Options[0].ID, Quantity: 1}},
			GameUID:        "12345",
			IdempotencyKey: "%",
		})
		if err != nil {
			t.Fatal(err)
		}
		if !replay.AlreadyProcessed {
			t.Fatal("replay not flagged as already processed")
		}
	})
}

func TestCheckoutWithCoupon(t *testing.T) {
	ctx := context.Background()
	dbFlush(ctx)

	user := testUser(t, ctx, 10000)
	card := testCard(t, ctx, 2000)

	c := &topup.Coupon{
		Code:         "SAVE10",
		DiscountType: topup.DiscountTypePercentage,
		Value:        decimal.NewFromInt(10),
		PerUserLimit: null.IntFrom(1),
		Active:       true,
	}
	err := db.CouponCreate(ctx, conn, c)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("discount_applied", func(t *testing.T) {
		result, err := checkout.PurchaseWithWallet(ctx, conn, &checkout.Request{
			UserID:     user.ID,
			Items:      []checkout.LineItem{{CardID: card.ID, OptionID: card.Options[0].ID, Quantity: 1}},
			GameUID:    "12345",
			CouponCode: "save10",
		})
		if err != nil {
			t.Fatal(err)
		}
		if !result.Discount.Equal(decimal.NewFromInt(200)) {
			t.Fatalf("wanted discount 200, got %s", result.Discount)
		}
		if !result.Total.Equal(decimal.NewFromInt(1800)) {
			t.Fatalf("wanted total 1800, got %s", result.Total)
		}
	})

	t.Run("per_user_limit", func(t *testing.T) {
		_, err := checkout.PurchaseWithWallet(ctx, conn, &checkout.Request{
			UserID:     user.ID,
			Items:      []checkout.LineItem{{CardID: card.ID, OptionID: card.Options[0].ID, Quantity: 1}},
			GameUID:    "12345",
			CouponCode: "SAVE10",
		})
		if err == nil {
			t.Fatal("wanted per-user limit error, got nil")
		}
		if !strings.Contains(err.Error(), "already used") {
			t.Fatalf("unexpected error: %s", err)
		}
	})
}

func TestWalletRequestProcess(t *testing.T) {
	ctx := context.Background()
	dbFlush(ctx)

	t.Run("approve_credits_once", func(t *testing.T) {
		user := testUser(t, ctx, 0)

		request, err := wallet.SubmitRequest(ctx, conn, user.ID, decimal.NewFromInt(3000), "0979111222", "TX123456", "KPay")
		if err != nil {
			t.Fatal(err)
		}
		if request.Status != topup.WalletRequestStatusPending {
			t.Fatalf("wanted status Pending, got %s", request.Status)
		}

		processed, err := wallet.Process(ctx, conn, request.ID, true)
		if err != nil {
			t.Fatal(err)
		}
		if processed.Status != topup.WalletRequestStatusApproved {
			t.Fatalf("wanted status Approved, got %s", processed.Status)
		}

		after, err := db.UserGet(ctx, conn, user.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !after.WalletBalance.Equal(decimal.NewFromInt(3000)) {
			t.Fatalf("wanted balance 3000, got %s", after.WalletBalance)
		}

		// second approval must fail and not credit again
		_, err = wallet.Process(ctx, conn, request.ID, true)
		if err == nil {
			t.Fatal("wanted already processed error, got nil")
		}

		after, err = db.UserGet(ctx, conn, user.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !after.WalletBalance.Equal(decimal.NewFromInt(3000)) {
			t.Fatalf("request processed twice: balance %s", after.WalletBalance)
		}
	})

	t.Run("reject_leaves_balance", func(t *testing.T) {
		user := testUser(t, ctx, 0)

		request, err := wallet.SubmitRequest(ctx, conn, user.ID, decimal.NewFromInt(3000), "0979111222", "TX654321", "KPay")
		if err != nil {
			t.Fatal(err)
		}

		processed, err := wallet.Process(ctx, conn, request.ID, false)
		if err != nil {
			t.Fatal(err)
		}
		if processed.Status != topup.WalletRequestStatusRejected {
			t.Fatalf("wanted status Rejected, got %s", processed.Status)
		}

		after, err := db.UserGet(ctx, conn, user.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !after.WalletBalance.IsZero() {
			t.Fatalf("rejected request credited wallet: %s", after.WalletBalance)
		}
	})
}

func TestCouponClaimLimit(t *testing.T) {
	ctx := context.Background()
	dbFlush(ctx)

	c := &topup.Coupon{
		Code:         "LIMITED",
		DiscountType: topup.DiscountTypeFixed,
		Value:        decimal.NewFromInt(500),
		ClaimLimit:   null.IntFrom(2),
		Active:       true,
	}
	err := db.CouponCreate(ctx, conn, c)
	if err != nil {
		t.Fatal(err)
	}

	first := testUser(t, ctx, 0)
	second := testUser(t, ctx, 0)
	third := testUser(t, ctx, 0)

	_, err = coupon.Claim(ctx, conn, first.ID, "LIMITED")
	if err != nil {
		t.Fatal(err)
	}
	_, err = coupon.Claim(ctx, conn, second.ID, "LIMITED")
	if err != nil {
		t.Fatal(err)
	}
	_, err = coupon.Claim(ctx, conn, third.ID, "LIMITED")
	if err == nil {
		t.Fatal("wanted claim limit error, got nil")
	}

	_, err = coupon.Claim(ctx, conn, first.ID, "LIMITED")
	if err == nil {
		t.Fatal("wanted already claimed error, got nil")
	}

	after, err := db.CouponGet(ctx, conn, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.ClaimedCount != 2 {
		t.Fatalf("wanted claimed count 2, got %d", after.ClaimedCount)
	}
}

func TestCouponClaimLimitConcurrent(t *testing.T) {
	ctx := context.Background()
	dbFlush(ctx)

	c := &topup.Coupon{
		Code:         "RUSH",
		DiscountType: topup.DiscountTypeFixed,
		Value:        decimal.NewFromInt(500),
		ClaimLimit:   null.IntFrom(2),
		Active:       true,
	}
	err := db.CouponCreate(ctx, conn, c)
	if err != nil {
		t.Fatal(err)
	}

	users := make([]*topup.User, 8)
	for i := range users {
		users[i] = testUser(t, ctx, 0)
	}

	var claimed int32
	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, err := coupon.Claim(ctx, conn, userID, "RUSH")
			if err == nil {
				atomic.AddInt32(&claimed, 1)
			}
		}(u.ID)
	}
	wg.Wait()

	if claimed != 2 {
		t.Fatalf("wanted exactly 2 successful claims, got %d", claimed)
	}

	after, err := db.CouponGet(ctx, conn, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.ClaimedCount != 2 {
		t.Fatalf("wanted claimed count 2, got %d", after.ClaimedCount)
	}
}

func TestReferralBonuses(t *testing.T) {
	ctx := context.Background()
	dbFlush(ctx)

	err := db.ReferralSettingsUpdate(ctx, conn, &topup.ReferralSettings{
		SignupBonus:     50,
		ReferrerBonus:   100,
		FirstOrderBonus: 200,
	})
	if err != nil {
		t.Fatal(err)
	}

	referrer := testUser(t, ctx, 0)
	referee := testUser(t, ctx, 10000)

	err = db.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		return referral.ApplySignup(ctx, tx, referee, referrer.ReferralCode)
	})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("signup_bonuses", func(t *testing.T) {
		gotReferee, err := db.UserGet(ctx, conn, referee.ID)
		if err != nil {
			t.Fatal(err)
		}
		if gotReferee.Points != 50 {
			t.Fatalf("wanted referee points 50, got %d", gotReferee.Points)
		}
		if !gotReferee.ReferredBy.Valid || gotReferee.ReferredBy.String != referrer.ID {
			t.Fatal("referee not linked to referrer")
		}

		gotReferrer, err := db.UserGet(ctx, conn, referrer.ID)
		if err != nil {
			t.Fatal(err)
		}
		if gotReferrer.Points != 100 {
			t.Fatalf("wanted referrer points 100, got %d", gotReferrer.Points)
		}
	})

	t.Run("unknown_code_skipped", func(t *testing.T) {
		other := testUser(t, ctx, 0)
		err := db.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			return referral.ApplySignup(ctx, tx, other, "NOSUCHCODE")
		})
		if err != nil {
			t.Fatal(err)
		}
		got, err := db.UserGet(ctx, conn, other.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Points != 0 {
			t.Fatalf("unknown code awarded points: %d", got.Points)
		}
	})

	t.Run("first_order_bonus_once", func(t *testing.T) {
		card := testCard(t, ctx, 1000)

		_, err := checkout.PurchaseWithWallet(ctx, conn, &checkout.Request{
			UserID:  referee.ID,
			Items:   []checkout.LineItem{{CardID: card.ID, OptionID: card.Options[0].ID, Quantity: 1}},
			GameUID: "12345",
		})
		if err != nil {
			t.Fatal(err)
		}

		gotReferrer, err := db.UserGet(ctx, conn, referrer.ID)
		if err != nil {
			t.Fatal(err)
		}
		if gotReferrer.Points != 300 {
			t.Fatalf("wanted referrer points 300 after first order, got %d", gotReferrer.Points)
		}

		// second order pays nothing more
		_, err = checkout.PurchaseWithWallet(ctx, conn, &checkout.Request{
			UserID:  referee.ID,
			Items:   []checkout.LineItem{{CardID: card.ID, OptionID: card.Options[0].ID, Quantity: 1}},
			GameUID: "12345",
		})
		if err != nil {
			t.Fatal(err)
		}

		gotReferrer, err = db.UserGet(ctx, conn, referrer.ID)
		if err != nil {
			t.Fatal(err)
		}
		if gotReferrer.Points != 300 {
			t.Fatalf("first order bonus paid twice: points %d", gotReferrer.Points)
		}
	})
}

func TestPurchaseTierBonus(t *testing.T) {
	ctx := context.Background()
	dbFlush(ctx)

	err := db.ReferralSettingsUpdate(ctx, conn, &topup.ReferralSettings{
		PurchaseTiers: []*topup.ReferralPurchaseTier{
			{Threshold: decimal.NewFromInt(1000), Bonus: 10},
			{Threshold: decimal.NewFromInt(5000), Bonus: 60},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	user := testUser(t, ctx, 0)

	tests := []struct {
		name  string
		total int64
		want  int
	}{
		{name: "below_first_tier", total: 500, want: 0},
		{name: "first_tier", total: 1200, want: 10},
		{name: "highest_matching_tier", total: 6000, want: 70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := db.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
				return referral.AwardPurchaseTierBonus(ctx, tx, user.ID, decimal.NewFromInt(tt.total))
			})
			if err != nil {
				t.Fatal(err)
			}
			got, err := db.UserGet(ctx, conn, user.ID)
			if err != nil {
				t.Fatal(err)
			}
			if got.Points != tt.want {
				t.Fatalf("wanted points %d, got %d", tt.want, got.Points)
			}
		})
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	ctx := context.Background()
	dbFlush(ctx)

	err := db.ReferralSettingsUpdate(ctx, conn, &topup.ReferralSettings{
		PurchaseTiers: []*topup.ReferralPurchaseTier{
			{Threshold: decimal.NewFromInt(1000), Bonus: 10},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	user := testUser(t, ctx, 5000)
	card := testCard(t, ctx, 1000)

	result, err := checkout.PurchaseWithWallet(ctx, conn, &checkout.Request{
		UserID:  user.ID,
		Items:   []checkout.LineItem{{CardID: card.ID, OptionID: card.Options[0].ID, Quantity: 1}},
		GameUID: "12345",
	})
	if err != nil {
		t.Fatal(err)
	}
	orderID := result.Orders[0].ID

	t.Run("complete_pays_tier_bonus_once", func(t *testing.T) {
		order, err := checkout.TransitionOrder(ctx, conn, orderID, topup.OrderStatusCompleted, "done")
		if err != nil {
			t.Fatal(err)
		}
		if order.Status != topup.OrderStatusCompleted {
			t.Fatalf("wanted status Completed, got %s", order.Status)
		}
		got, err := db.UserGet(ctx, conn, user.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Points != 10 {
			t.Fatalf("wanted points 10, got %d", got.Points)
		}

		// cancel and complete again, no second payout
		_, err = checkout.TransitionOrder(ctx, conn, orderID, topup.OrderStatusCancelled, "hold")
		if err != nil {
			t.Fatal(err)
		}
		_, err = checkout.TransitionOrder(ctx, conn, orderID, topup.OrderStatusCompleted, "done")
		if err != nil {
			t.Fatal(err)
		}
		got, err = db.UserGet(ctx, conn, user.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Points != 10 {
			t.Fatalf("tier bonus paid twice: points %d", got.Points)
		}
	})

	t.Run("refund_credits_wallet", func(t *testing.T) {
		order, err := checkout.TransitionOrder(ctx, conn, orderID, topup.OrderStatusRefunded, "")
		if err != nil {
			t.Fatal(err)
		}
		if order.Status != topup.OrderStatusRefunded {
			t.Fatalf("wanted status Refunded, got %s", order.Status)
		}
		got, err := db.UserGet(ctx, conn, user.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !got.WalletBalance.Equal(decimal.NewFromInt(5000)) {
			t.Fatalf("wanted balance 5000 after refund, got %s", got.WalletBalance)
		}
	})

	t.Run("refunded_is_terminal", func(t *testing.T) {
		_, err := checkout.TransitionOrder(ctx, conn, orderID, topup.OrderStatusPending, "")
		if err == nil {
			t.Fatal("wanted already refunded error, got nil")
		}
	})

	t.Run("unknown_order", func(t *testing.T) {
		_, err := checkout.TransitionOrder(ctx, conn, uuid.Must(uuid.NewV4()).String(), topup.OrderStatusCompleted, "")
		if err == nil {
			t.Fatal("wanted order not found error, got nil")
		}
	})
}
