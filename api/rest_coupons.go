package api

import (
	"encoding/json"
	"net/http"
	"topup"
	"topup/coupon"
	"topup/db"
	"topup/helpers"

	"github.com/go-chi/chi/v5"
	"github.com/ninja-software/terror/v2"
)

func CouponsRouter(api *API) chi.Router {
	r := chi.NewRouter()
	r.Post("/claim", WithError(api.WithUser(api.CouponClaimHandler)))
	r.Get("/mine", WithError(api.WithUser(api.CouponMineHandler)))
	return r
}

type CouponClaimRequest struct {
	Code string `json:"code"`
}

func (api *API) CouponClaimHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	req := &CouponClaimRequest{}
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}

	claimed, err := coupon.Claim(r.Context(), api.Conn, user.ID, req.Code)
	if err != nil {
		return http.StatusBadRequest, err
	}
	return helpers.EncodeJSON(w, claimed)
}

func (api *API) CouponMineHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	coupons, err := db.UserCouponList(r.Context(), api.Conn, user.ID)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, coupons)
}
