package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"topup"
	"topup/checkout"
	"topup/db"
	"topup/helpers"
	"topup/telegram"
	"topup/wallet"

	"github.com/go-chi/chi/v5"
	"github.com/ninja-software/terror/v2"
	"github.com/volatiletech/null/v8"
)

func AdminRouter(api *API) chi.Router {
	r := chi.NewRouter()

	r.Get("/wallet_requests", WithError(api.WithAdmin(api.AdminWalletRequestListHandler)))
	r.Post("/wallet_requests/{request_id}/process", WithError(api.WithAdmin(api.AdminWalletRequestProcessHandler)))

	r.Get("/orders", WithError(api.WithAdmin(api.AdminOrderListHandler)))
	r.Post("/orders/{order_id}/status", WithError(api.WithAdmin(api.AdminOrderStatusHandler)))

	r.Post("/categories", WithError(api.WithAdmin(api.AdminCategoryCreateHandler)))
	r.Get("/cards", WithError(api.WithAdmin(api.AdminCardListHandler)))
	r.Post("/cards", WithError(api.WithAdmin(api.AdminCardCreateHandler)))
	r.Put("/cards/{card_id}", WithError(api.WithAdmin(api.AdminCardUpdateHandler)))
	r.Post("/cards/{card_id}/options", WithError(api.WithAdmin(api.AdminCardOptionCreateHandler)))
	r.Put("/options/{option_id}", WithError(api.WithAdmin(api.AdminCardOptionUpdateHandler)))

	r.Get("/coupons", WithError(api.WithAdmin(api.AdminCouponListHandler)))
	r.Post("/coupons", WithError(api.WithAdmin(api.AdminCouponCreateHandler)))
	r.Put("/coupons/{coupon_id}", WithError(api.WithAdmin(api.AdminCouponUpdateHandler)))

	r.Get("/payment_methods", WithError(api.WithAdmin(api.AdminPaymentMethodListHandler)))
	r.Post("/payment_methods", WithError(api.WithAdmin(api.AdminPaymentMethodCreateHandler)))
	r.Put("/payment_methods/{method_id}", WithError(api.WithAdmin(api.AdminPaymentMethodUpdateHandler)))

	r.Get("/notices", WithError(api.WithAdmin(api.AdminNoticeListHandler)))
	r.Post("/notices", WithError(api.WithAdmin(api.AdminNoticeCreateHandler)))
	r.Put("/notices/{notice_id}", WithError(api.WithAdmin(api.AdminNoticeUpdateHandler)))

	r.Get("/referral_settings", WithError(api.WithAdmin(api.AdminReferralSettingsGetHandler)))
	r.Put("/referral_settings", WithError(api.WithAdmin(api.AdminReferralSettingsUpdateHandler)))

	r.Get("/users", WithError(api.WithAdmin(api.AdminUserListHandler)))
	r.Put("/users/{user_id}", WithError(api.WithAdmin(api.AdminUserUpdateHandler)))

	r.Get("/support_tickets", WithError(api.WithAdmin(api.AdminSupportTicketListHandler)))
	r.Post("/support_tickets/{ticket_id}/reply", WithError(api.WithAdmin(api.AdminSupportTicketReplyHandler)))

	r.Post("/telegram_shortcode", WithError(api.WithAdmin(api.AdminTelegramShortcodeHandler)))

	return r
}

func (api *API) AdminWalletRequestListHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	status := topup.WalletRequestStatus(r.URL.Query().Get("status"))
	requests, err := db.WalletRequestList(r.Context(), api.Conn, status)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, requests)
}

type AdminWalletRequestProcessRequest struct {
	Approve bool `json:"approve"`
}

func (api *API) AdminWalletRequestProcessHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	req := &AdminWalletRequestProcessRequest{}
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}

	request, err := wallet.Process(r.Context(), api.Conn, chi.URLParam(r, "request_id"), req.Approve)
	if err != nil {
		return http.StatusBadRequest, err
	}
	return helpers.EncodeJSON(w, request)
}

func (api *API) AdminOrderListHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	status := topup.OrderStatus(r.URL.Query().Get("status"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	orders, err := db.OrderList(r.Context(), api.Conn, status, limit, offset)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, orders)
}

// statusMessages are the customer-facing lines recorded when an admin moves
// an order and leaves the reason blank.
var statusMessages = map[topup.OrderStatus]string{
	topup.OrderStatusPending:   "Your order is queued and will be processed shortly.",
	topup.OrderStatusCompleted: "Your order has been completed. Thank you for shopping with us!",
	topup.OrderStatusCancelled: "Your order has been cancelled. Please contact support if you believe this is a mistake.",
	topup.OrderStatusRefunded:  "Your order has been refunded.",
}

type AdminOrderStatusRequest struct {
	Status topup.OrderStatus `json:"status"`
	Reason string            `json:"reason"`
}

// AdminOrderStatusHandler moves an order between statuses. Completing an
// order pays out the purchase-tier referral bonus at most once; refunding a
// wallet order credits the wallet back.
func (api *API) AdminOrderStatusHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	req := &AdminOrderStatusRequest{}
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}
	if !req.Status.IsValid() {
		return http.StatusBadRequest, terror.Error(fmt.Errorf("invalid order status: %s", req.Status), string(InputError))
	}
	if req.Reason == "" {
		req.Reason = statusMessages[req.Status]
	}

	order, err := checkout.TransitionOrder(r.Context(), api.Conn, chi.URLParam(r, "order_id"), req.Status, req.Reason)
	if err != nil {
		return http.StatusBadRequest, err
	}
	return helpers.EncodeJSON(w, order)
}

func (api *API) AdminCategoryCreateHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	category := &topup.Category{}
	err := json.NewDecoder(r.Body).Decode(category)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}
	err = db.CategoryCreate(r.Context(), api.Conn, category)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, category)
}

func (api *API) AdminCardListHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	cards, err := db.CardList(r.Context(), api.Conn, false)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, cards)
}

func (api *API) AdminCardCreateHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	card := &topup.TopUpCard{}
	err := json.NewDecoder(r.Body).Decode(card)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}
	err = db.CardCreate(r.Context(), api.Conn, card)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, card)
}

func (api *API) AdminCardUpdateHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	card := &topup.TopUpCard{}
	err := json.NewDecoder(r.Body).Decode(card)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}
	card.ID = chi.URLParam(r, "card_id")
	err = db.CardUpdate(r.Context(), api.Conn, card)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, card)
}

func (api *API) AdminCardOptionCreateHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	option := &topup.CardOption{}
	err := json.NewDecoder(r.Body).Decode(option)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}
	option.CardID = chi.URLParam(r, "card_id")
	err = db.CardOptionCreate(r.Context(), api.Conn, option)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, option)
}

func (api *API) AdminCardOptionUpdateHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	option := &topup.CardOption{}
	err := json.NewDecoder(r.Body).Decode(option)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}
	option.ID = chi.URLParam(r, "option_id")
	err = db.CardOptionUpdate(r.Context(), api.Conn, option)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, option)
}

func (api *API) AdminCouponListHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	coupons, err := db.CouponList(r.Context(), api.Conn)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, coupons)
}

func (api *API) AdminCouponCreateHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	coupon := &topup.Coupon{}
	err := json.NewDecoder(r.Body).Decode(coupon)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}
	err = db.CouponCreate(r.Context(), api.Conn, coupon)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, coupon)
}

func (api *API) AdminCouponUpdateHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	coupon := &topup.Coupon{}
	err := json.NewDecoder(r.Body).Decode(coupon)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}
	coupon.ID = chi.URLParam(r, "coupon_id")
	err = db.CouponUpdate(r.Context(), api.Conn, coupon)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, coupon)
}

func (api *API) AdminPaymentMethodListHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	methods, err := db.PaymentMethodList(r.Context(), api.Conn, false)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, methods)
}

func (api *API) AdminPaymentMethodCreateHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	method := &topup.PaymentMethod{}
	err := json.NewDecoder(r.Body).Decode(method)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}
	err = db.PaymentMethodCreate(r.Context(), api.Conn, method)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, method)
}

func (api *API) AdminPaymentMethodUpdateHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	method := &topup.PaymentMethod{}
	err := json.NewDecoder(r.Body).Decode(method)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}
	method.ID = chi.URLParam(r, "method_id")
	err = db.PaymentMethodUpdate(r.Context(), api.Conn, method)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, method)
}

func (api *API) AdminNoticeListHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	notices, err := db.NoticeList(r.Context(), api.Conn, false)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, notices)
}

func (api *API) AdminNoticeCreateHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	notice := &topup.Notice{}
	err := json.NewDecoder(r.Body).Decode(notice)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}
	err = db.NoticeCreate(r.Context(), api.Conn, notice)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, notice)
}

func (api *API) AdminNoticeUpdateHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	notice := &topup.Notice{}
	err := json.NewDecoder(r.Body).Decode(notice)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}
	notice.ID = chi.URLParam(r, "notice_id")
	err = db.NoticeUpdate(r.Context(), api.Conn, notice)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, notice)
}

func (api *API) AdminReferralSettingsGetHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	settings, err := db.ReferralSettingsGet(r.Context(), api.Conn)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, settings)
}

func (api *API) AdminReferralSettingsUpdateHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	settings := &topup.ReferralSettings{}
	err := json.NewDecoder(r.Body).Decode(settings)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}
	err = db.ReferralSettingsUpdate(r.Context(), api.Conn, settings)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, settings)
}

func (api *API) AdminUserListHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	search := r.URL.Query().Get("search")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	users, err := db.UserList(r.Context(), api.Conn, search, limit, offset)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, users)
}

func (api *API) AdminUserUpdateHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	target, err := db.UserGet(r.Context(), api.Conn, chi.URLParam(r, "user_id"))
	if err != nil {
		return http.StatusInternalServerError, err
	}
	if target == nil {
		return http.StatusNotFound, terror.Error(fmt.Errorf("user not found"), "Account not found.")
	}

	err = json.NewDecoder(r.Body).Decode(target)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}
	target.ID = chi.URLParam(r, "user_id")

	err = db.UserUpdate(r.Context(), api.Conn, target)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, target)
}

func (api *API) AdminSupportTicketListHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	status := topup.TicketStatus(r.URL.Query().Get("status"))
	tickets, err := db.SupportTicketList(r.Context(), api.Conn, status)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, tickets)
}

type AdminSupportTicketReplyRequest struct {
	Reply string `json:"reply"`
	Close bool   `json:"close"`
}

func (api *API) AdminSupportTicketReplyHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	req := &AdminSupportTicketReplyRequest{}
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}

	ticketID := chi.URLParam(r, "ticket_id")
	ticket, err := db.SupportTicketGet(r.Context(), api.Conn, ticketID)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	if ticket == nil {
		return http.StatusNotFound, terror.Error(fmt.Errorf("ticket not found: %s", ticketID), "Ticket not found.")
	}

	err = db.SupportTicketReply(r.Context(), api.Conn, ticketID, req.Reply, req.Close)
	if err != nil {
		return http.StatusInternalServerError, err
	}

	ticket.Reply = null.StringFrom(req.Reply)
	if req.Close {
		ticket.Status = topup.TicketStatusClosed
	}
	return helpers.EncodeJSON(w, ticket)
}

// AdminTelegramShortcodeHandler issues the code the admin sends to the bot
// with /register to start receiving alerts.
func (api *API) AdminTelegramShortcodeHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	profile, err := telegram.GenerateShortcode(r.Context(), api.Conn, user.ID)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, profile)
}
