package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

func InitLog() *zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	Logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	return &Logger
}

// SetLevel switches the global level, unknown names leave it untouched.
func SetLevel(log *zerolog.Logger, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Err(err).Msg("unknown log level, keeping default")
		return
	}
	zerolog.SetGlobalLevel(lvl)
}
