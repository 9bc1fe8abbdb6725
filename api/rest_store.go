package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"topup/db"
	"topup/helpers"

	"github.com/go-chi/chi/v5"
	"github.com/ninja-software/terror/v2"
)

var ErrCardNotFound = fmt.Errorf("card not found")

func StoreRouter(api *API) chi.Router {
	r := chi.NewRouter()
	r.Get("/categories", WithError(api.CategoryListHandler))
	r.Get("/cards", WithError(api.CardListHandler))
	r.Get("/cards/{card_id}", WithError(api.CardGetHandler))
	r.Get("/notices", WithError(api.NoticeListHandler))
	r.Get("/payment_methods", WithError(api.PaymentMethodListHandler))
	r.Post("/game_uid_check", WithError(api.GameUIDCheckHandler))
	return r
}

func (api *API) CategoryListHandler(w http.ResponseWriter, r *http.Request) (int, error) {
	categories, err := db.CategoryList(r.Context(), api.Conn)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, categories)
}

func (api *API) CardListHandler(w http.ResponseWriter, r *http.Request) (int, error) {
	cards, err := db.CardList(r.Context(), api.Conn, true)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, cards)
}

func (api *API) CardGetHandler(w http.ResponseWriter, r *http.Request) (int, error) {
	card, err := db.CardGet(r.Context(), api.Conn, chi.URLParam(r, "card_id"))
	if err != nil {
		return http.StatusInternalServerError, err
	}
	if card == nil || !card.Active {
		return http.StatusNotFound, terror.Error(ErrCardNotFound, "Card not found.")
	}
	return helpers.EncodeJSON(w, card)
}

func (api *API) NoticeListHandler(w http.ResponseWriter, r *http.Request) (int, error) {
	notices, err := db.NoticeList(r.Context(), api.Conn, true)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, notices)
}

func (api *API) PaymentMethodListHandler(w http.ResponseWriter, r *http.Request) (int, error) {
	methods, err := db.PaymentMethodList(r.Context(), api.Conn, true)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, methods)
}

type GameUIDCheckRequest struct {
	Game string `json:"game"`
	UID  string `json:"uid"`
}

type GameUIDCheckResponse struct {
	Nickname string `json:"nickname"`
}

// GameUIDCheckHandler proxies UID validation to the external gaming
// platform so the storefront never talks to it directly.
func (api *API) GameUIDCheckHandler(w http.ResponseWriter, r *http.Request) (int, error) {
	req := &GameUIDCheckRequest{}
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}

	nickname, err := api.GameID.Validate(req.Game, req.UID)
	if err != nil {
		return http.StatusBadRequest, err
	}
	return helpers.EncodeJSON(w, &GameUIDCheckResponse{Nickname: nickname})
}
