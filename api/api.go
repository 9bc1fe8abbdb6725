package api

import (
	"context"
	"net/http"
	"time"
	"topup"
	"topup/gameid"
	"topup/telegram"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/meehow/securebytes"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"topup/storelog"
)

// API server
type API struct {
	ctx      context.Context
	server   *http.Server
	Routes   chi.Router
	Conn     *pgxpool.Pool
	Telegram *telegram.Telegram
	GameID   *gameid.Client
	Cookie   *securebytes.SecureBytes
	Config   *topup.Config
}

// NewAPI registers routes
func NewAPI(ctx context.Context, conn *pgxpool.Pool, t *telegram.Telegram, config *topup.Config) *API {
	api := &API{
		ctx:      ctx,
		Routes:   chi.NewRouter(),
		Conn:     conn,
		Telegram: t,
		GameID:   gameid.NewClient(config.GameCheckURL),
		Cookie: securebytes.New(
			[]byte(config.CookieKey),
			securebytes.ASN1Serializer{}),
		Config: config,
	}

	api.Routes.Use(middleware.RequestID)
	api.Routes.Use(middleware.RealIP)
	api.Routes.Use(storelog.ChiLogger(zerolog.DebugLevel))
	api.Routes.Use(cors.New(
		cors.Options{
			AllowedOrigins:   []string{config.StorefrontURL},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler,
	)

	api.Routes.Handle("/metrics", promhttp.Handler())
	api.Routes.Route("/api", func(r chi.Router) {
		r.Mount("/check", CheckRouter(api))
		r.Mount("/auth", AuthRouter(api))
		r.Mount("/store", StoreRouter(api))
		r.Mount("/checkout", CheckoutRouter(api))
		r.Mount("/orders", OrdersRouter(api))
		r.Mount("/wallet", WalletRouter(api))
		r.Mount("/coupons", CouponsRouter(api))
		r.Mount("/referral", ReferralRouter(api))
		r.Mount("/support", SupportRouter(api))
		r.Mount("/admin", AdminRouter(api))
		r.Post("/telegram_alert", WithToken(config.ServerStreamKey, api.TelegramAlertHandler))
	})

	return api
}

// Run the API service
func (api *API) Run(ctx context.Context) error {
	api.server = &http.Server{
		Addr:    api.Config.Address,
		Handler: api.Routes,
	}

	storelog.L.Info().Str("addr", api.Config.Address).Msg("starting API server")

	go func() {
		<-ctx.Done()
		api.Close()
	}()

	err := api.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (api *API) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	storelog.L.Info().Msg("stopping API server")
	err := api.server.Shutdown(ctx)
	if err != nil {
		storelog.L.Warn().Err(err).Msg("")
	}
}
