// Command migrate applies or rolls back the Postgres session schema.
//
//	migrate up
//	migrate down
package main

import (
	"os"

	"github.com/jrsteele09/go-session-auth/internal/logger"
	"github.com/jrsteele09/go-session-auth/sessions/pgstore"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func main() {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound
	v.AutomaticEnv()
	v.SetDefault("ENV", "DEV")
	v.SetDefault("LOG_LEVEL", "info")

	logger.Setup(v.GetString("ENV"), v.GetString("LOG_LEVEL"))

	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	if err := pgstore.Migrate(v.GetString("DATABASE_URL"), direction); err != nil {
		log.Fatal().Err(err).Str("direction", direction).Msg("migration failed")
	}
	log.Info().Str("direction", direction).Msg("migrations applied")
}
