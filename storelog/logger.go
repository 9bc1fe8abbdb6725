package storelog

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/ninja-software/log_helpers"
	"github.com/rs/zerolog"
)

var L *zerolog.Logger

func New(environment, level string) *zerolog.Logger {
	l := log_helpers.LoggerInitZero(environment, level)
	L = l
	L.Info().Msg("zerolog initialised")
	return l
}

// ChiLogger logs every request at the given level.
func ChiLogger(level zerolog.Level) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				L.WithLevel(level).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Dur("duration", time.Since(start)).
					Msg("http request")
			}()
			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
