package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"topup"

	"github.com/ninja-software/terror/v2"
)

type ErrorMessage string

const (
	Unauthorised          ErrorMessage = "Unauthorised - Please log in or contact System Administrator"
	Forbidden             ErrorMessage = "Forbidden - You do not have permissions for this, please contact System Administrator"
	InternalErrorTryAgain ErrorMessage = "Internal Error - Please try again in a few minutes or Contact Support"
	InputError            ErrorMessage = "Input Error - Please try again"
)

// ErrorObject is the JSON error body every handler failure renders to.
type ErrorObject struct {
	Message string `json:"message"`
}

func WithError(next func(w http.ResponseWriter, r *http.Request) (int, error)) func(w http.ResponseWriter, r *http.Request) {
	fn := func(w http.ResponseWriter, r *http.Request) {
		code, err := next(w, r)
		if err != nil {
			terror.Echo(err)
			errObj := &ErrorObject{Message: err.Error()}
			jsonErr, err := json.Marshal(errObj)
			if err != nil {
				terror.Echo(err)
				http.Error(w, `{"message":"JSON failed, please contact IT."}`, code)
				return
			}
			http.Error(w, string(jsonErr), code)
			return
		}
	}
	return fn
}

func WithToken(apiToken string, next func(w http.ResponseWriter, r *http.Request)) func(w http.ResponseWriter, r *http.Request) {
	fn := func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Authorization") != apiToken {
			http.Error(w, "unauthorized", http.StatusForbidden)
			return
		}
		next(w, r)
	}
	return fn
}

// WithUser resolves the session to a user record before calling next.
func (api *API) WithUser(next func(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error)) func(w http.ResponseWriter, r *http.Request) (int, error) {
	fn := func(w http.ResponseWriter, r *http.Request) (int, error) {
		user, err := api.UserFromRequest(r)
		if err != nil {
			return http.StatusUnauthorized, terror.Error(err, string(Unauthorised))
		}
		return next(w, r, user)
	}
	return fn
}

// WithAdmin is WithUser plus an admin check. Admin-only routes are always
// enforced server side.
func (api *API) WithAdmin(next func(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error)) func(w http.ResponseWriter, r *http.Request) (int, error) {
	fn := func(w http.ResponseWriter, r *http.Request, user *topup.User) (int, error) {
		if !user.IsAdmin {
			return http.StatusForbidden, terror.Error(fmt.Errorf("user %s is not an admin", user.ID), string(Forbidden))
		}
		return next(w, r, user)
	}
	return api.WithUser(fn)
}
