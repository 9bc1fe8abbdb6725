package api

import (
	"fmt"
	"net/http"
	"topup/db"

	"github.com/go-chi/chi/v5"
	"github.com/ninja-software/terror/v2"
)

var (
	ErrCheckDBQuery = fmt.Errorf("error: executing db query")
	ErrCheckDBDirty = fmt.Errorf("db is dirty")
)

func CheckRouter(api *API) chi.Router {
	r := chi.NewRouter()
	r.Get("/", WithError(api.CheckHandler))
	return r
}

// CheckHandler checks the server and schema are ready to serve.
func (api *API) CheckHandler(w http.ResponseWriter, r *http.Request) (int, error) {
	count := 0
	err := db.IsSchemaDirty(r.Context(), api.Conn, &count)
	if err != nil {
		return http.StatusServiceUnavailable, terror.Error(ErrCheckDBQuery)
	}
	if count > 0 {
		return http.StatusServiceUnavailable, terror.Error(ErrCheckDBDirty)
	}

	_, err = w.Write([]byte("ok"))
	if err != nil {
		return http.StatusInternalServerError, terror.Error(err)
	}
	return http.StatusOK, nil
}
