package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"
	"topup"
	"topup/api"
	"topup/db"
	"topup/seed"
	"topup/storedb"
	"topup/storelog"
	"topup/telegram"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/ninja-software/terror/v2"
	"github.com/oklog/run"
	"github.com/urfave/cli/v2"
)

// Version build Version
const Version = "v0.1.0"

const envPrefix = "TOPUP"

func main() {
	app := &cli.App{
		Compiled: time.Now(),
		Usage:    "Run the top-up store server",
		Flags:    []cli.Flag{},
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"s"},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "database_user", Value: "topup", EnvVars: []string{envPrefix + "_DATABASE_USER", "DATABASE_USER"}, Usage: "The database user"},
					&cli.StringFlag{Name: "database_pass", Value: "dev", EnvVars: []string{envPrefix + "_DATABASE_PASS", "DATABASE_PASS"}, Usage: "The database pass"},
					&cli.StringFlag{Name: "database_host", Value: "localhost", EnvVars: []string{envPrefix + "_DATABASE_HOST", "DATABASE_HOST"}, Usage: "The database host"},
					&cli.StringFlag{Name: "database_port", Value: "5437", EnvVars: []string{envPrefix + "_DATABASE_PORT", "DATABASE_PORT"}, Usage: "The database port"},
					&cli.StringFlag{Name: "database_name", Value: "topup", EnvVars: []string{envPrefix + "_DATABASE_NAME", "DATABASE_NAME"}, Usage: "The database name"},
					&cli.StringFlag{Name: "database_application_name", Value: "API Server", EnvVars: []string{envPrefix + "_DATABASE_APPLICATION_NAME"}, Usage: "Postgres application name"},

					&cli.StringFlag{Name: "log_level", Value: "DebugLevel", EnvVars: []string{envPrefix + "_LOG_LEVEL"}, Usage: "Set the log level for zerolog (Options: PanicLevel, FatalLevel, ErrorLevel, WarnLevel, InfoLevel, DebugLevel, TraceLevel"},
					&cli.StringFlag{Name: "environment", Value: "development", DefaultText: "development", EnvVars: []string{envPrefix + "_ENVIRONMENT", "ENVIRONMENT"}, Usage: "This program environment (development, staging, production), it sets the log levels"},

					&cli.StringFlag{Name: "api_addr", Value: ":8084", EnvVars: []string{envPrefix + "_API_ADDR"}, Usage: ":port to run the API"},
					&cli.StringFlag{Name: "storefront_url", Value: "http://localhost:3000", EnvVars: []string{envPrefix + "_STOREFRONT_URL"}, Usage: "origin of the storefront, for CORS"},

					&cli.BoolFlag{Name: "cookie_secure", Value: true, EnvVars: []string{envPrefix + "_COOKIE_SECURE", "COOKIE_SECURE"}, Usage: "set cookie secure"},
					&cli.StringFlag{Name: "cookie_key", Value: "asgk236tkj2kszaxfj.,.135j25khsafkahfgiu215hi2htkjahsgfih13kj", EnvVars: []string{envPrefix + "_COOKIE_KEY", "COOKIE_KEY"}, Usage: "cookie encryption key"},
					&cli.StringFlag{Name: "identity_jwt_secret", Value: "872ab3df-d7c7-4eb6-a052-4146d0f4dd15", EnvVars: []string{envPrefix + "_IDENTITY_JWT_SECRET"}, Usage: "shared secret for the identity provider's login tokens"},
					&cli.StringFlag{Name: "server_stream_key", Value: "", EnvVars: []string{envPrefix + "_SERVER_STREAM_KEY"}, Usage: "shared key for server-to-server routes"},

					&cli.StringFlag{Name: "telegram_bot_token", Value: "", EnvVars: []string{envPrefix + "_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN"}, Usage: "telegram bot token for admin alerts, empty disables the bot"},
					&cli.StringFlag{Name: "game_check_url", Value: "", EnvVars: []string{envPrefix + "_GAME_CHECK_URL"}, Usage: "base URL of the game UID validation endpoint"},
				},
				Usage: "run server",
				Action: func(c *cli.Context) error {
					ctx, cancel := context.WithCancel(c.Context)
					environment := c.String("environment")
					topup.SetEnv(environment)
					logger := storelog.New(environment, c.String("log_level"))

					pgxconn, err := pgxconnect(
						c.String("database_user"),
						c.String("database_pass"),
						c.String("database_host"),
						c.String("database_port"),
						c.String("database_name"),
						c.String("database_application_name"),
						Version,
					)
					if err != nil {
						cancel()
						return terror.Panic(err)
					}
					err = storedb.New(pgxconn)
					if err != nil {
						cancel()
						return terror.Panic(err)
					}

					t, err := telegram.NewTelegram(c.String("telegram_bot_token"))
					if err != nil {
						cancel()
						return terror.Panic(err)
					}

					config := &topup.Config{
						Environment:      environment,
						Address:          c.String("api_addr"),
						CookieSecure:     c.Bool("cookie_secure"),
						CookieKey:        c.String("cookie_key"),
						IdentityJWTKey:   []byte(c.String("identity_jwt_secret")),
						ServerStreamKey:  c.String("server_stream_key"),
						StorefrontURL:    c.String("storefront_url"),
						TelegramBotToken: c.String("telegram_bot_token"),
						GameCheckURL:     c.String("game_check_url"),
					}
					serverAPI := api.NewAPI(ctx, pgxconn, t, config)

					g := &run.Group{}
					// Listen for os.interrupt
					g.Add(run.SignalHandler(ctx, os.Interrupt))

					// Telegram bot long poller
					g.Add(func() error { return t.Run() }, func(err error) {
						if t.Bot != nil {
							t.Stop()
						}
						cancel()
					})

					// API server
					g.Add(func() error { return serverAPI.Run(ctx) }, func(err error) {
						cancel()
					})

					err = g.Run()
					if errors.Is(err, run.SignalError{Signal: os.Interrupt}) {
						err = terror.Warn(err)
					}
					if err != nil {
						logger.Err(err).Msg("server stopped")
					}
					return nil
				},
			},
			{
				Name: "db",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "database_user", Value: "topup", EnvVars: []string{envPrefix + "_DATABASE_USER", "DATABASE_USER"}, Usage: "The database user"},
					&cli.StringFlag{Name: "database_pass", Value: "dev", EnvVars: []string{envPrefix + "_DATABASE_PASS", "DATABASE_PASS"}, Usage: "The database pass"},
					&cli.StringFlag{Name: "database_host", Value: "localhost", EnvVars: []string{envPrefix + "_DATABASE_HOST", "DATABASE_HOST"}, Usage: "The database host"},
					&cli.StringFlag{Name: "database_port", Value: "5437", EnvVars: []string{envPrefix + "_DATABASE_PORT", "DATABASE_PORT"}, Usage: "The database port"},
					&cli.StringFlag{Name: "database_name", Value: "topup", EnvVars: []string{envPrefix + "_DATABASE_NAME", "DATABASE_NAME"}, Usage: "The database name"},
					&cli.StringFlag{Name: "database_application_name", Value: "Migrate", EnvVars: []string{envPrefix + "_DATABASE_APPLICATION_NAME"}, Usage: "Postgres application name"},
					&cli.BoolFlag{Name: "seed", EnvVars: []string{"DB_SEED"}, Usage: "seed the database after migrating"},
				},
				Usage: "migrate the database, optionally seed",
				Action: func(c *cli.Context) error {
					connString := pgxconnstring(
						c.String("database_user"),
						c.String("database_pass"),
						c.String("database_host"),
						c.String("database_port"),
						c.String("database_name"),
						c.String("database_application_name"),
						Version,
					)
					err := db.MigrateUp(connString)
					if err != nil {
						return terror.Error(err)
					}
					fmt.Println("Migrations complete")

					if !c.Bool("seed") {
						return nil
					}

					pgxconn, err := pgxconnect(
						c.String("database_user"),
						c.String("database_pass"),
						c.String("database_host"),
						c.String("database_port"),
						c.String("database_name"),
						c.String("database_application_name"),
						Version,
					)
					if err != nil {
						return terror.Error(err)
					}
					return seed.NewSeeder(pgxconn).Run()
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func pgxconnstring(
	DatabaseUser string,
	DatabasePass string,
	DatabaseHost string,
	DatabasePort string,
	DatabaseName string,
	DatabaseApplicationName string,
	APIVersion string,
) string {
	params := url.Values{}
	params.Add("sslmode", "disable")
	if DatabaseApplicationName != "" {
		params.Add("application_name", fmt.Sprintf("%s %s", DatabaseApplicationName, APIVersion))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?%s",
		DatabaseUser,
		DatabasePass,
		DatabaseHost,
		DatabasePort,
		DatabaseName,
		params.Encode(),
	)
}

func pgxconnect(
	DatabaseUser string,
	DatabasePass string,
	DatabaseHost string,
	DatabasePort string,
	DatabaseName string,
	DatabaseApplicationName string,
	APIVersion string,
) (*pgxpool.Pool, error) {
	connString := pgxconnstring(DatabaseUser, DatabasePass, DatabaseHost, DatabasePort, DatabaseName, DatabaseApplicationName, APIVersion)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, terror.Panic(err, "could not initialise database")
	}
	poolConfig.ConnConfig.LogLevel = pgx.LogLevelTrace

	ctx := context.Background()
	conn, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, terror.Panic(err, "could not initialise database")
	}

	return conn, nil
}
