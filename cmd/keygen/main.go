// Command keygen writes a signing key pair for JWT_PRIVATE_KEY and
// JWT_PUBLIC_KEY.
//
//	keygen [rsa|ec] [dir]
package main

import (
	"os"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-auth/internal/logger"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/rs/zerolog/log"
)

func main() {
	logger.Setup("DEV", "info")

	kind, dir := "ec", "."
	if len(os.Args) > 1 {
		kind = os.Args[1]
	}
	if len(os.Args) > 2 {
		dir = os.Args[2]
	}

	keyID := uuid.New().String()
	var (
		kp  *token.KeyPair
		err error
	)
	switch kind {
	case "rsa":
		kp, err = token.GenerateRSAKeyPair(keyID, 2048)
	case "ec":
		kp, err = token.GenerateECDSAKeyPair(keyID)
	default:
		log.Fatal().Str("kind", kind).Msg("key kind must be rsa or ec")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to generate key pair")
	}

	privatePath, publicPath, err := kp.WritePEMFiles(dir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to write key pair")
	}
	log.Info().
		Str("algorithm", kp.Algorithm).
		Str("JWT_PRIVATE_KEY", privatePath).
		Str("JWT_PUBLIC_KEY", publicPath).
		Msg("key pair written")
}
