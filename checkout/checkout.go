// Package checkout turns a cart into order records. Totals are always
// recomputed from current option prices and coupon rules inside the
// transaction; client-supplied totals are never trusted.
package checkout

import (
	"context"
	"fmt"
	"topup"
	"topup/coupon"
	"topup/db"
	"topup/referral"

	"github.com/jackc/pgx/v4"
	"github.com/ninja-software/terror/v2"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

type LineItem struct {
	CardID   string `json:"card_id"`
	OptionID string `json:"option_id"`
	Quantity int    `json:"quantity"`
}

type Request struct {
	UserID         string     `json:"-"`
	Items          []LineItem `json:"items"`
	GameUID        string     `json:"game_uid"`
	CouponCode     string     `json:"coupon_code"`
	IdempotencyKey string     `json:"idempotency_key"`

	// instant-pay path only
	SenderPhone       string `json:"sender_phone"`
	PaymentTXID       string `json:"payment_txid"`
	PaymentMethodName string `json:"payment_method_name"`
}

type Result struct {
	Orders   []*topup.Order  `json:"orders"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`

	// AlreadyProcessed is set when the idempotency key matched a previous
	// submission and the stored orders were returned instead of new writes.
	AlreadyProcessed bool `json:"already_processed"`
}

func validate(req *Request) error {
	if req.UserID == "" {
		return terror.Error(fmt.Errorf("missing user id"), "Insufficient data to process checkout.")
	}
	if len(req.Items) == 0 {
		return terror.Error(fmt.Errorf("empty cart"), "Your cart is empty.")
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return terror.Error(fmt.Errorf("invalid quantity %d", item.Quantity), "Invalid quantity.")
		}
	}
	if req.GameUID == "" {
		return terror.Error(fmt.Errorf("missing game uid"), "Game UID is required.")
	}
	return nil
}

// PurchaseWithWallet debits the user's wallet and creates one order per line
// item, atomically. On any precondition failure nothing is written.
func PurchaseWithWallet(ctx context.Context, conn db.Conn, req *Request) (*Result, error) {
	err := validate(req)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	err = db.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		done, err := replayIdempotent(ctx, tx, req, result)
		if err != nil || done {
			return err
		}

		user, err := db.UserGetForUpdate(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return terror.Error(fmt.Errorf("user not found: %s", req.UserID), "Insufficient data to process checkout.")
		}

		priorOrders, err := db.OrderCountByUser(ctx, tx, user.ID)
		if err != nil {
			return err
		}

		options, err := resolveOptions(ctx, tx, req.Items)
		if err != nil {
			return err
		}

		subtotal := decimal.Zero
		for i, item := range req.Items {
			subtotal = subtotal.Add(options[i].Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		var c *topup.Coupon
		discount := decimal.Zero
		if req.CouponCode != "" {
			c, discount, err = coupon.Validate(ctx, tx, req.CouponCode, user.ID, subtotal)
			if err != nil {
				return err
			}
		}
		total := subtotal.Sub(discount)

		if user.WalletBalance.LessThan(total) {
			return terror.Error(
				fmt.Errorf("balance %s below total %s", user.WalletBalance, total),
				"Insufficient wallet balance.",
			)
		}

		orders, err := writeOrders(ctx, tx, req, options, c, discount, "Wallet")
		if err != nil {
			return err
		}

		err = db.UserWalletDebit(ctx, tx, user.ID, total)
		if err != nil {
			return err
		}

		if priorOrders == 0 {
			err = referral.AwardFirstOrderBonus(ctx, tx, user.ID)
			if err != nil {
				return err
			}
		}

		result.Orders = orders
		result.Subtotal = subtotal
		result.Discount = discount
		result.Total = total
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PurchaseInstant creates orders for the manual-payment path. No wallet is
// touched; the sender phone and payment transaction id are recorded on each
// order and an admin verifies the payment before completing it.
func PurchaseInstant(ctx context.Context, conn db.Conn, req *Request) (*Result, error) {
	err := validate(req)
	if err != nil {
		return nil, err
	}
	if req.SenderPhone == "" || req.PaymentTXID == "" || req.PaymentMethodName == "" {
		return nil, terror.Error(fmt.Errorf("missing manual payment fields"), "Sender phone, transaction ID and payment method are required.")
	}

	result := &Result{}
	err = db.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		done, err := replayIdempotent(ctx, tx, req, result)
		if err != nil || done {
			return err
		}

		user, err := db.UserGetForUpdate(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return terror.Error(fmt.Errorf("user not found: %s", req.UserID), "Insufficient data to process checkout.")
		}

		options, err := resolveOptions(ctx, tx, req.Items)
		if err != nil {
			return err
		}

		subtotal := decimal.Zero
		for i, item := range req.Items {
			subtotal = subtotal.Add(options[i].Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		var c *topup.Coupon
		discount := decimal.Zero
		if req.CouponCode != "" {
			c, discount, err = coupon.Validate(ctx, tx, req.CouponCode, user.ID, subtotal)
			if err != nil {
				return err
			}
		}

		orders, err := writeOrders(ctx, tx, req, options, c, discount, req.PaymentMethodName)
		if err != nil {
			return err
		}

		result.Orders = orders
		result.Subtotal = subtotal
		result.Discount = discount
		result.Total = subtotal.Sub(discount)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// TransitionOrder moves an order between statuses in one transaction.
// Completing an order pays the purchase-tier referral bonus at most once,
// guarded by a flag on the order; refunding a wallet-paid order credits the
// wallet back. Refunded is terminal.
func TransitionOrder(ctx context.Context, conn db.Conn, orderID string, status topup.OrderStatus, reason string) (*topup.Order, error) {
	var order *topup.Order
	err := db.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		var err error
		order, err = db.OrderGetForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return terror.Error(fmt.Errorf("order not found: %s", orderID), "Order not found.")
		}
		if order.Status == status {
			return nil
		}
		if order.Status == topup.OrderStatusRefunded {
			return terror.Error(fmt.Errorf("order %s already refunded", order.ID), "This order has already been refunded.")
		}

		err = db.OrderSetStatus(ctx, tx, order.ID, status, reason)
		if err != nil {
			return err
		}

		switch status {
		case topup.OrderStatusCompleted:
			if !order.TierBonusPaid {
				err = referral.AwardPurchaseTierBonus(ctx, tx, order.UserID, order.Total)
				if err != nil {
					return err
				}
				err = db.OrderSetTierBonusPaid(ctx, tx, order.ID)
				if err != nil {
					return err
				}
				order.TierBonusPaid = true
			}
		case topup.OrderStatusRefunded:
			if order.PaymentMethod == "Wallet" {
				buyer, err := db.UserGetForUpdate(ctx, tx, order.UserID)
				if err != nil {
					return err
				}
				if buyer == nil {
					return terror.Error(fmt.Errorf("order user not found: %s", order.UserID), "Account not found, no refund applied.")
				}
				err = db.UserWalletCredit(ctx, tx, buyer.ID, order.Total)
				if err != nil {
					return err
				}
			}
		}

		order.Status = status
		order.Reason = null.StringFrom(reason)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// replayIdempotent short-circuits a retried submission by returning the
// orders the first attempt stored. The lookup is scoped to the requesting
// user; one user's key never resolves another user's orders.
func replayIdempotent(ctx context.Context, tx db.Conn, req *Request, result *Result) (bool, error) {
	if req.IdempotencyKey == "" {
		return false, nil
	}
	existing, err := db.OrdersByIdempotencyKey(ctx, tx, req.UserID, req.IdempotencyKey)
	if err != nil {
		return false, err
	}
	if len(existing) == 0 {
		return false, nil
	}

	total := decimal.Zero
	for _, o := range existing {
		total = total.Add(o.Total)
	}
	result.Orders = existing
	result.Total = total
	result.Subtotal = total
	result.AlreadyProcessed = true
	return true, nil
}

// resolveOptions locks the option row of every line item and verifies the
// cart references real, active products. The lock queues concurrent
// checkouts on the stock counters. Stock checks run against the combined
// quantity of a cart, so the same option on two lines cannot slip past the
// limit one line at a time.
func resolveOptions(ctx context.Context, tx db.Conn, items []LineItem) ([]*topup.CardOption, error) {
	options := make([]*topup.CardOption, 0, len(items))
	cartQuantities := map[string]int{}
	for _, item := range items {
		option, err := db.CardOptionGetForUpdate(ctx, tx, item.OptionID)
		if err != nil {
			return nil, err
		}
		if option == nil || option.CardID != item.CardID {
			return nil, terror.Error(fmt.Errorf("option not found: %s", item.OptionID), "Selected package is no longer available.")
		}

		card, err := db.CardGet(ctx, tx, option.CardID)
		if err != nil {
			return nil, err
		}
		if card == nil || !card.Active {
			return nil, terror.Error(fmt.Errorf("card inactive: %s", option.CardID), "Selected product is no longer available.")
		}

		cartQuantities[option.ID] += item.Quantity
		if option.StockLimit.Valid && option.Sold+cartQuantities[option.ID] > option.StockLimit.Int {
			return nil, terror.Error(
				fmt.Errorf("option %s sold out: %d + %d > %d", option.ID, option.Sold, cartQuantities[option.ID], option.StockLimit.Int),
				fmt.Sprintf("%s is sold out.", option.Label),
			)
		}
		options = append(options, option)
	}
	return options, nil
}

func writeOrders(ctx context.Context, tx db.Conn, req *Request, options []*topup.CardOption, c *topup.Coupon, discount decimal.Decimal, paymentMethod string) ([]*topup.Order, error) {
	lineTotals := AllocateLineTotals(options, req.Items, discount)

	orders := make([]*topup.Order, 0, len(req.Items))
	for i, item := range req.Items {
		option := options[i]

		if option.StockLimit.Valid {
			err := db.CardOptionBumpSold(ctx, tx, option.ID, item.Quantity)
			if err != nil {
				return nil, err
			}
		}

		order := &topup.Order{
			UserID:        req.UserID,
			CardID:        option.CardID,
			OptionID:      option.ID,
			OptionLabel:   option.Label,
			Quantity:      item.Quantity,
			GameUID:       req.GameUID,
			PaymentMethod: paymentMethod,
			UnitPrice:     option.Price,
			Total:         lineTotals[i],
		}
		if c != nil {
			order.CouponID = null.StringFrom(c.ID)
		}
		if req.SenderPhone != "" {
			order.SenderPhone = null.StringFrom(req.SenderPhone)
			order.PaymentTXID = null.StringFrom(req.PaymentTXID)
			order.PaymentMethodName = null.StringFrom(req.PaymentMethodName)
		}
		if req.IdempotencyKey != "" {
			order.IdempotencyKey = null.StringFrom(fmt.Sprintf("%s:%d", req.IdempotencyKey, i))
		}

		err := db.OrderInsert(ctx, tx, order)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// AllocateLineTotals splits a cart discount across line totals so the lines
// always sum to exactly subtotal - discount. The discount comes off the last
// lines first, never pushing a line below zero.
func AllocateLineTotals(options []*topup.CardOption, items []LineItem, discount decimal.Decimal) []decimal.Decimal {
	totals := make([]decimal.Decimal, len(items))
	for i, item := range items {
		totals[i] = options[i].Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
	}
	remaining := discount
	for i := len(totals) - 1; i >= 0 && remaining.IsPositive(); i-- {
		cut := remaining
		if cut.GreaterThan(totals[i]) {
			cut = totals[i]
		}
		totals[i] = totals[i].Sub(cut)
		remaining = remaining.Sub(cut)
	}
	return totals
}
