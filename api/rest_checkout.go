package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"topup"
	"topup/checkout"
	"topup/helpers"

	"github.com/go-chi/chi/v5"
	"github.com/ninja-software/terror/v2"
)

func CheckoutRouter(api *API) chi.Router {
	r := chi.NewRouter()
	r.Post("/wallet", WithError(api.WithUser(api.CheckoutWalletHandler)))
	r.Post("/instant", WithError(api.WithUser(api.CheckoutInstantHandler)))
	return r
}

func (api *API) CheckoutWalletHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	req := &checkout.Request{}
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}
	req.UserID = user.ID

	result, err := checkout.PurchaseWithWallet(r.Context(), api.Conn, req)
	if err != nil {
		return http.StatusBadRequest, err
	}

	if !result.AlreadyProcessed {
		api.alertNewOrders(user, result)
	}
	return helpers.EncodeJSON(w, result)
}

func (api *API) CheckoutInstantHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	req := &checkout.Request{}
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}
	req.UserID = user.ID

	result, err := checkout.PurchaseInstant(r.Context(), api.Conn, req)
	if err != nil {
		return http.StatusBadRequest, err
	}

	if !result.AlreadyProcessed {
		api.alertNewOrders(user, result)
	}
	return helpers.EncodeJSON(w, result)
}

// alertNewOrders fires the admin notification after commit. Best effort:
// the orders stand whether or not the alert lands.
func (api *API) alertNewOrders(user *topup.User, result *checkout.Result) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		msg := fmt.Sprintf(
			"New order: %s placed %d item(s), total %s",
			user.Name, len(result.Orders), result.Total,
		)
		api.Telegram.AlertAdmins(ctx, msg)
	}()
}
