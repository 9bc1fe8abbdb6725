package api

import (
	"net/http"
	"topup"
	"topup/db"
	"topup/helpers"

	"github.com/go-chi/chi/v5"
)

func ReferralRouter(api *API) chi.Router {
	r := chi.NewRouter()
	r.Get("/", WithError(api.WithUser(api.ReferralSummaryHandler)))
	return r
}

// ReferralSummary is what the account page renders: the user's own code
// plus everyone they have brought in so far.
type ReferralSummary struct {
	ReferralCode string            `json:"referral_code"`
	Points       int               `json:"points"`
	SignupBonus  int               `json:"signup_bonus"`
	Referrals    []*topup.Referral `json:"referrals"`
}

func (api *API) ReferralSummaryHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	settings, err := db.ReferralSettingsGet(r.Context(), api.Conn)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	referrals, err := db.ReferralListByReferrer(r.Context(), api.Conn, user.ID)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, &ReferralSummary{
		ReferralCode: user.ReferralCode,
		Points:       user.Points,
		SignupBonus:  settings.SignupBonus,
		Referrals:    referrals,
	})
}
