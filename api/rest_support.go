package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"topup"
	"topup/db"
	"topup/helpers"

	"github.com/go-chi/chi/v5"
	"github.com/ninja-software/terror/v2"
)

func SupportRouter(api *API) chi.Router {
	r := chi.NewRouter()
	r.Post("/", WithError(api.WithUser(api.SupportTicketCreateHandler)))
	r.Get("/", WithError(api.WithUser(api.SupportTicketListMineHandler)))
	return r
}

type SupportTicketCreateRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (api *API) SupportTicketCreateHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	req := &SupportTicketCreateRequest{}
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}
	req.Subject = strings.TrimSpace(req.Subject)
	req.Body = strings.TrimSpace(req.Body)
	if req.Subject == "" || req.Body == "" {
		return http.StatusBadRequest, terror.Error(fmt.Errorf("subject and body required"), "Please fill in a subject and a message.")
	}

	ticket := &topup.SupportTicket{
		UserID:  user.ID,
		Subject: req.Subject,
		Body:    req.Body,
	}
	err = db.SupportTicketInsert(r.Context(), api.Conn, ticket)
	if err != nil {
		return http.StatusInternalServerError, err
	}

	api.alertSupportTicket(ticket, user)

	return helpers.EncodeJSON(w, ticket)
}

func (api *API) alertSupportTicket(ticket *topup.SupportTicket, user *topup.User) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		msg := fmt.Sprintf("New support ticket from %s: %s", user.Name, ticket.Subject)
		api.Telegram.AlertAdmins(ctx, msg)
	}()
}

func (api *API) SupportTicketListMineHandler(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
	tickets, err := db.SupportTicketListByUser(r.Context(), api.Conn, user.ID)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return helpers.EncodeJSON(w, tickets)
}
