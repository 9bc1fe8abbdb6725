// Package telegram is the single notification channel for admin alerts.
// Admins link their chat by sending a shortcode to the bot; new orders and
// wallet requests then fan out to every linked chat, best effort.
package telegram

import (
	"context"
	"strconv"
	"strings"
	"time"
	"topup"
	"topup/db"
	"topup/storedb"
	"topup/storelog"

	"github.com/ninja-software/terror/v2"
	"github.com/teris-io/shortid"
	tele "gopkg.in/telebot.v3"
)

type Telegram struct {
	*tele.Bot
}

// NewTelegram returns a disabled notifier when no token is configured, so
// development environments run without a bot.
func NewTelegram(token string) (*Telegram, error) {
	t := &Telegram{}
	if token == "" {
		return t, nil
	}

	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		storelog.L.Error().Err(err).Msg("unable to initialise telegram bot")
		return nil, terror.Error(err)
	}
	t.Bot = b
	return t, nil
}

// Run registers the bot handlers and starts long polling. Blocks until the
// bot stops.
func (t *Telegram) Run() error {
	if t.Bot == nil {
		return nil
	}

	t.Handle("/register", func(c tele.Context) error {
		return c.Send("Enter shortcode", tele.ForceReply)
	})

	t.Handle(tele.OnText, func(c tele.Context) error {
		if !c.Message().IsReply() {
			return nil
		}

		ctx := context.Background()
		shortcode := c.Text()
		telegramID, err := strconv.ParseInt(c.Recipient().Recipient(), 10, 64)
		if err != nil {
			storelog.L.Error().Err(err).Msg("unable to parse telegram recipient id")
			return c.Send("Unable to register shortcode, try again or contact support.")
		}

		profile, err := db.TelegramProfileGetByShortcode(ctx, storedb.Pool, strings.ToLower(shortcode))
		if err != nil {
			storelog.L.Error().Err(err).Msg("unable to get profile by shortcode")
			return c.Send("Unable to find shortcode, please try again or contact support.")
		}
		if profile == nil {
			return c.Send("Invalid shortcode.")
		}

		err = db.TelegramProfileSetID(ctx, storedb.Pool, profile.UserID, telegramID)
		if err != nil {
			storelog.L.Error().Err(err).
				Int64("telegram_id", telegramID).
				Str("user_id", profile.UserID).
				Msg("unable to link telegram chat")
			return c.Send("Issue registering, try again or contact support.")
		}

		return c.Send("Registered successfully! You will be notified about new orders and wallet requests.")
	})

	t.Start()
	return nil
}

// GenerateShortcode creates (or refreshes) the registration shortcode an
// admin sends to the bot.
func GenerateShortcode(ctx context.Context, conn db.Conn, userID string) (*topup.TelegramProfile, error) {
	code, err := shortid.Generate()
	if err != nil {
		return nil, terror.Error(err)
	}

	for {
		exists, err := db.TelegramProfileShortcodeExists(ctx, conn, code)
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
		code, err = shortid.Generate()
		if err != nil {
			return nil, terror.Error(err)
		}
	}

	profile := &topup.TelegramProfile{
		UserID:        userID,
		Shortcode:     strings.ToLower(code),
		AlertsEnabled: true,
	}
	err = db.TelegramProfileUpsert(ctx, conn, profile)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// AlertAdmins sends message to every linked admin chat. Failures are logged
// and swallowed; this must never fail a caller.
func (t *Telegram) AlertAdmins(ctx context.Context, message string) {
	if t.Bot == nil {
		return
	}

	chatIDs, err := db.TelegramAlertChatIDs(ctx, storedb.Pool)
	if err != nil {
		storelog.L.Error().Err(err).Msg("failed to list telegram alert chats")
		return
	}
	for _, chatID := range chatIDs {
		_, err = t.Send(&tele.Chat{ID: chatID}, message)
		if err != nil {
			storelog.L.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send telegram alert")
		}
	}
}
