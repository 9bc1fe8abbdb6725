package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"topup"
	"topup/db"
	"topup/helpers"
	"topup/wallet"

	"github.com/go-chi/chi/v5"
	"github.com/ninja-software/terror/v2"
	"github.com/shopspring/decimal"
)

func WalletRouter(api *API) chi.Router {
	r := chi.NewRouter()
	r.Post("/topup", WithError(api.WithUser(api.WalletTopUpSubmitHandler)))
	r.Get("/topup", WithError(api.WithUser(api.WalletTopUpListHandler)))
	return r
}

type WalletTopUpSubmitRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	SenderPhone string          `json:"sender_phone"`
	PaymentTXID string          `json:"payment_txid"`
	Method      string          `json:"method"`
}

func (api *API) WalletTopUpSubmitHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	req := &WalletTopUpSubmitRequest{}
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}

	topupReq, err := wallet.SubmitRequest(r.Context(), api.Conn, user.ID, req.Amount, req.SenderPhone, req.PaymentTXID, req.Method)
	if err != nil {
		return http.StatusBadRequest, err
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		api.Telegram.AlertAdmins(ctx, fmt.Sprintf("New wallet top up request: %s for %s", user.Name, topupReq.Amount))
	}()

	return helpers.EncodeJSON(w, topupReq)
}

func (api *API) WalletTopUpListHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	reqs, err := db.WalletRequestListByUser(r.Context(), api.Conn, user.ID)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, reqs)
}
