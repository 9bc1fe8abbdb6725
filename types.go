package topup

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// User is a single store account. The identity provider owns credentials;
// this record only carries what the store needs.
type User struct {
	ID            string          `json:"id" db:"id"`
	IdentityID    string          `json:"identity_id" db:"identity_id"`
	Name          string          `json:"name" db:"name"`
	Email         string          `json:"email" db:"email"`
	WalletBalance decimal.Decimal `json:"wallet_balance" db:"wallet_balance"`
	ReferralCode  string          `json:"referral_code" db:"referral_code"`
	ReferredBy    null.String     `json:"referred_by,omitempty" db:"referred_by"`
	IsAdmin       bool            `json:"is_admin" db:"is_admin"`
	Points        int             `json:"points" db:"points"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusCompleted OrderStatus = "Completed"
	OrderStatusCancelled OrderStatus = "Cancelled"
	OrderStatusRefunded  OrderStatus = "Refunded"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return true
	default:
		return false
	}
}

type Order struct {
	ID            string          `json:"id" db:"id"`
	UserID        string          `json:"user_id" db:"user_id"`
	CardID        string          `json:"card_id" db:"card_id"`
	OptionID      string          `json:"option_id" db:"option_id"`
	OptionLabel   string          `json:"option_label" db:"option_label"`
	Quantity      int             `json:"quantity" db:"quantity"`
	GameUID       string          `json:"game_uid" db:"game_uid"`
	PaymentMethod string          `json:"payment_method" db:"payment_method"`
	CouponID      null.String     `json:"coupon_id,omitempty" db:"coupon_id"`
	UnitPrice     decimal.Decimal `json:"unit_price" db:"unit_price"`
	Total         decimal.Decimal `json:"total" db:"total"`
	Status        OrderStatus     `json:"status" db:"status"`
	Reason        null.String     `json:"reason,omitempty" db:"reason"`

	// manual payment sub-record, set on the instant-pay path only
	SenderPhone       null.String `json:"sender_phone,omitempty" db:"sender_phone"`
	PaymentTXID       null.String `json:"payment_txid,omitempty" db:"payment_txid"`
	PaymentMethodName null.String `json:"payment_method_name,omitempty" db:"payment_method_name"`

	// TierBonusPaid guards the purchase-tier referral payout so repeated
	// status toggles cannot award it twice.
	TierBonusPaid bool `json:"tier_bonus_paid" db:"tier_bonus_paid"`

	IdempotencyKey null.String `json:"idempotency_key,omitempty" db:"idempotency_key"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}

type Category struct {
	ID        string `json:"id" db:"id"`
	Label     string `json:"label" db:"label"`
	SortOrder int    `json:"sort_order" db:"sort_order"`
}

// TopUpCard is a purchasable product, e.g. one game's diamond top-up page.
type TopUpCard struct {
	ID            string        `json:"id" db:"id"`
	CategoryID    null.String   `json:"category_id,omitempty" db:"category_id"`
	Title         string        `json:"title" db:"title"`
	GameName      string        `json:"game_name" db:"game_name"`
	ImageURL      null.String   `json:"image_url,omitempty" db:"image_url"`
	UIDFieldLabel string        `json:"uid_field_label" db:"uid_field_label"`
	Active        bool          `json:"active" db:"active"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	Options       []*CardOption `json:"options,omitempty"`
}

// CardOption is a single denomination of a card. Sold is only bumped inside
// the checkout transaction, and only for options that carry a stock limit.
type CardOption struct {
	ID         string          `json:"id" db:"id"`
	CardID     string          `json:"card_id" db:"card_id"`
	Label      string          `json:"label" db:"label"`
	Price      decimal.Decimal `json:"price" db:"price"`
	StockLimit null.Int        `json:"stock_limit,omitempty" db:"stock_limit"`
	Sold       int             `json:"sold" db:"sold"`
}

type WalletRequestStatus string

const (
	WalletRequestStatusPending  WalletRequestStatus = "Pending"
	WalletRequestStatusApproved WalletRequestStatus = "Approved"
	WalletRequestStatusRejected WalletRequestStatus = "Rejected"
)

type WalletTopUpRequest struct {
	ID          string              `json:"id" db:"id"`
	UserID      string              `json:"user_id" db:"user_id"`
	Amount      decimal.Decimal     `json:"amount" db:"amount"`
	SenderPhone string              `json:"sender_phone" db:"sender_phone"`
	PaymentTXID string              `json:"payment_txid" db:"payment_txid"`
	Method      string              `json:"method" db:"method"`
	Status      WalletRequestStatus `json:"status" db:"status"`
	ProcessedAt null.Time           `json:"processed_at,omitempty" db:"processed_at"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
}

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "Percentage"
	DiscountTypeFixed      DiscountType = "Fixed"
)

type Coupon struct {
	ID           string              `json:"id" db:"id"`
	Code         string              `json:"code" db:"code"`
	DiscountType DiscountType        `json:"discount_type" db:"discount_type"`
	Value        decimal.Decimal     `json:"value" db:"value"`
	MinPurchase  decimal.NullDecimal `json:"min_purchase,omitempty" db:"min_purchase"`
	ExpiresAt    null.Time           `json:"expires_at,omitempty" db:"expires_at"`
	PerUserLimit null.Int            `json:"per_user_limit,omitempty" db:"per_user_limit"`
	UsageLimit   null.Int            `json:"usage_limit,omitempty" db:"usage_limit"`
	ClaimLimit   null.Int            `json:"claim_limit,omitempty" db:"claim_limit"`
	Active       bool                `json:"active" db:"active"`
	ClaimedCount int                 `json:"claimed_count" db:"claimed_count"`
	CreatedAt    time.Time           `json:"created_at" db:"created_at"`
}

// ReferralSettings is a singleton row.
type ReferralSettings struct {
	SignupBonus     int                     `json:"signup_bonus" db:"signup_bonus"`
	ReferrerBonus   int                     `json:"referrer_bonus" db:"referrer_bonus"`
	FirstOrderBonus int                     `json:"first_order_bonus" db:"first_order_bonus"`
	PurchaseTiers   []*ReferralPurchaseTier `json:"purchase_tiers,omitempty"`
}

type ReferralPurchaseTier struct {
	Threshold decimal.Decimal `json:"threshold" db:"threshold"`
	Bonus     int             `json:"bonus" db:"bonus"`
}

// Referral is the ledger record created once per successful referral signup.
type Referral struct {
	ID                  string    `json:"id" db:"id"`
	ReferrerID          string    `json:"referrer_id" db:"referrer_id"`
	RefereeID           string    `json:"referee_id" db:"referee_id"`
	ReferrerBonusPaid   bool      `json:"referrer_bonus_paid" db:"referrer_bonus_paid"`
	FirstOrderBonusPaid bool      `json:"first_order_bonus_paid" db:"first_order_bonus_paid"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
}

type PaymentMethod struct {
	ID            string      `json:"id" db:"id"`
	Label         string      `json:"label" db:"label"`
	AccountNumber string      `json:"account_number" db:"account_number"`
	Instructions  null.String `json:"instructions,omitempty" db:"instructions"`
	Active        bool        `json:"active" db:"active"`
}

type Notice struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "Open"
	TicketStatusClosed TicketStatus = "Closed"
)

type SupportTicket struct {
	ID        string       `json:"id" db:"id"`
	UserID    string       `json:"user_id" db:"user_id"`
	Subject   string       `json:"subject" db:"subject"`
	Body      string       `json:"body" db:"body"`
	Status    TicketStatus `json:"status" db:"status"`
	Reply     null.String  `json:"reply,omitempty" db:"reply"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// TelegramProfile links an admin account to a telegram chat for order alerts.
type TelegramProfile struct {
	UserID        string     `json:"user_id" db:"user_id"`
	Shortcode     string     `json:"shortcode" db:"shortcode"`
	TelegramID    null.Int64 `json:"telegram_id,omitempty" db:"telegram_id"`
	AlertsEnabled bool       `json:"alerts_enabled" db:"alerts_enabled"`
}
