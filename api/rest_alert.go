package api

import (
	"encoding/json"
	"net/http"
)

type TelegramAlertRequest struct {
	Message string `json:"message"`
}

// TelegramAlertHandler lets other backend services push a line to the admin
// chats. Guarded by the shared server key, not a session.
func (api *API) TelegramAlertHandler(w http.ResponseWriter, r *http.Request) {
	req := &TelegramAlertRequest{}
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil || req.Message == "" {
		http.Error(w, `{"message":"message required"}`, http.StatusBadRequest)
		return
	}
	api.Telegram.AlertAdmins(r.Context(), req.Message)
	w.WriteHeader(http.StatusOK)
}
