package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"topup"
	"topup/db"
	"topup/referral"
	"topup/storelog"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt"
	"github.com/jackc/pgx/v4"
	"github.com/ninja-software/terror/v2"

	"topup/helpers"
)

const cookieName = "topup-token"

func AuthRouter(api *API) chi.Router {
	r := chi.NewRouter()
	r.Post("/login", WithError(api.LoginHandler))
	r.Post("/check", WithError(api.AuthCheckHandler))
	r.Get("/logout", WithError(api.LogoutHandler))
	return r
}

// identityClaims is what the identity provider puts in its tokens. Token
// issuance itself is the provider's job, not ours.
type identityClaims struct {
	IdentityID string
	Email      string
	Name       string
}

func (api *API) verifyIdentityToken(tokenStr string) (*identityClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return api.Config.IdentityJWTKey, nil
	})
	if err != nil {
		return nil, terror.Error(err, "Invalid session token.")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, terror.Error(fmt.Errorf("invalid token claims"), "Invalid session token.")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, terror.Error(fmt.Errorf("token missing sub claim"), "Invalid session token.")
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	return &identityClaims{IdentityID: sub, Email: email, Name: name}, nil
}

type LoginRequest struct {
	IdentityToken string `json:"identity_token"`
	ReferralCode  string `json:"referral_code"`
}

// LoginHandler exchanges an identity provider token for a session cookie.
// First login creates the store account; a referral code passed at signup
// feeds the referral flow, and an unknown code is skipped without error.
func (api *API) LoginHandler(w http.ResponseWriter, r *http.Request) (int, error) {
	req := &LoginRequest{}
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		return http.StatusBadRequest, terror.Error(err, string(InputError))
	}
	if req.IdentityToken == "" {
		return http.StatusBadRequest, terror.Error(fmt.Errorf("missing identity token"), "Missing identity token.")
	}

	claims, err := api.verifyIdentityToken(req.IdentityToken)
	if err != nil {
		return http.StatusBadRequest, err
	}

	user, err := db.UserGetByIdentityID(r.Context(), api.Conn, claims.IdentityID)
	if err != nil {
		return http.StatusInternalServerError, err
	}

	if user == nil {
		err = db.BeginFunc(r.Context(), api.Conn, func(tx pgx.Tx) error {
			user, err = db.UserCreate(r.Context(), tx, claims.IdentityID, claims.Name, claims.Email)
			if err != nil {
				return err
			}
			return referral.ApplySignup(r.Context(), tx, user, req.ReferralCode)
		})
		if err != nil {
			return http.StatusInternalServerError, err
		}
		storelog.L.Info().Str("user_id", user.ID).Msg("new account created")
	}

	err = api.WriteCookie(w, r, req.IdentityToken)
	if err != nil {
		return http.StatusInternalServerError, terror.Error(err, "Failed to write cookie")
	}
	return helpers.EncodeJSON(w, user)
}

func (api *API) AuthCheckHandler(w http.ResponseWriter, r *http.Request) (int, error) {
	user, err := api.UserFromRequest(r)
	if err != nil {
		return http.StatusUnauthorized, terror.Error(err, string(Unauthorised))
	}
	return helpers.EncodeJSON(w, user)
}

func (api *API) LogoutHandler(w http.ResponseWriter, r *http.Request) (int, error) {
	api.DeleteCookie(w)
	return helpers.EncodeJSON(w, struct {
		LoggedOut bool `json:"logged_out"`
	}{true})
}

// UserFromRequest resolves the session cookie, or a bearer token, to a user
// record.
func (api *API) UserFromRequest(r *http.Request) (*topup.User, error) {
	tokenStr := ""

	cookie, err := r.Cookie(cookieName)
	if err == nil {
		err = api.Cookie.DecryptBase64(cookie.Value, &tokenStr)
		if err != nil {
			return nil, terror.Error(err, "Invalid session cookie.")
		}
	} else {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return nil, terror.Error(fmt.Errorf("no cookie and no bearer token"), string(Unauthorised))
		}
		tokenStr = strings.TrimPrefix(header, "Bearer ")
	}

	claims, err := api.verifyIdentityToken(tokenStr)
	if err != nil {
		return nil, err
	}

	user, err := db.UserGetByIdentityID(r.Context(), api.Conn, claims.IdentityID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, terror.Error(fmt.Errorf("no account for identity %s", claims.IdentityID), string(Unauthorised))
	}
	return user, nil
}

func (api *API) WriteCookie(w http.ResponseWriter, r *http.Request, token string) error {
	encrypted, err := api.Cookie.EncryptToBase64(token)
	if err != nil {
		return terror.Error(err, "Failed to write cookie")
	}

	cookie := &http.Cookie{
		Name:     cookieName,
		Value:    encrypted,
		Expires:  time.Now().AddDate(0, 0, 30),
		Secure:   api.Config.CookieSecure,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteNoneMode,
	}
	http.SetCookie(w, cookie)
	return nil
}

func (api *API) DeleteCookie(w http.ResponseWriter) {
	cookie := &http.Cookie{
		Name:     cookieName,
		Value:    "",
		MaxAge:   -1,
		Secure:   api.Config.CookieSecure,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteNoneMode,
	}
	http.SetCookie(w, cookie)
}
