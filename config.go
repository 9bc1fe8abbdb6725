package topup

var env = "development"

type Config struct {
	Environment     string
	Address         string
	CookieSecure    bool
	CookieKey       string
	IdentityJWTKey  []byte
	ServerStreamKey string
	StorefrontURL   string

	TelegramBotToken string

	GameCheckURL string
}

func SetEnv(e string) {
	env = e
}

func IsDevelopmentEnv() bool {
	return env == "development"
}

func IsProductionEnv() bool {
	return env == "production"
}
