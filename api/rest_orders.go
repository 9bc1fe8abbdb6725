package api

import (
	"fmt"
	"net/http"
	"topup"
	"topup/db"
	"topup/helpers"

	"github.com/go-chi/chi/v5"
	"github.com/ninja-software/terror/v2"
)

var ErrOrderNotFound = fmt.Errorf("order not found")

func OrdersRouter(api *API) chi.Router {
	r := chi.NewRouter()
	r.Get("/", WithError(api.WithUser(api.OrderListMineHandler)))
	r.Get("/{order_id}", WithError(api.WithUser(api.OrderGetMineHandler)))
	return r
}

func (api *API) OrderListMineHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	orders, err := db.OrderListByUser(r.Context(), api.Conn, user.ID)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, orders)
}

func (api *API) OrderGetMineHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	order, err := db.OrderGet(r.Context(), api.Conn, chi.URLParam(r, "order_id"))
	if err != nil {
		return http.StatusInternalServerError, err
	}
	if order == nil || order.UserID != user.ID {
		return http.StatusNotFound, terror.Error(ErrOrderNotFound, "Order not found.")
	}
	return helpers.EncodeJSON(w, order)
}
