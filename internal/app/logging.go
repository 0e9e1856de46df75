package app

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var logLevels = map[string]zerolog.Level{
	"debug":    zerolog.DebugLevel,
	"info":     zerolog.InfoLevel,
	"warn":     zerolog.WarnLevel,
	"warning":  zerolog.WarnLevel,
	"error":    zerolog.ErrorLevel,
	"fatal":    zerolog.FatalLevel,
	"panic":    zerolog.PanicLevel,
	"disabled": zerolog.Disabled,
}

// SetupLogging configures the global zerolog logger from ENV and LOGLEVEL.
// Loggers pulled from a context without one attached fall back to it.
func SetupLogging(out io.Writer) {
	if out == nil {
		out = os.Stderr
	}
	production := os.Getenv("ENV") == "production"
	if production {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}
	zerolog.DefaultContextLogger = &log.Logger

	level, unknown := ParseLogLevel(os.Getenv("LOGLEVEL"), production)
	zerolog.SetGlobalLevel(level)
	if unknown {
		log.Warn().Msgf("Unknown LOGLEVEL '%s', defaulting to info.", os.Getenv("LOGLEVEL"))
	}
}

// ParseLogLevel maps a LOGLEVEL value to a level. An empty value means warn
// in production and info elsewhere; an unrecognised one means info and
// reports unknown.
func ParseLogLevel(s string, production bool) (level zerolog.Level, unknown bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		if production {
			return zerolog.WarnLevel, false
		}
		return zerolog.InfoLevel, false
	}
	if l, ok := logLevels[s]; ok {
		return l, false
	}
	return zerolog.InfoLevel, true
}
