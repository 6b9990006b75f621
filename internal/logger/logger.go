// Package logger configures the global zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup points the global logger at stdout: a console writer in DEV, JSON
// everywhere else. Unknown levels fall back to info.
func Setup(env, level string) {
	var out io.Writer = os.Stdout
	if strings.EqualFold(env, "DEV") {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}
