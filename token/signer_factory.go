package token

import (
	"fmt"

	"github.com/jrsteele09/go-session-auth/internal/config"
	errs "github.com/jrsteele09/go-session-auth/internal/errors"
)

const defaultKeyID = "session-auth-1"

// NewSignerFromConfig builds the process-wide signer. A PEM key pair takes
// precedence over the HMAC secret when both are configured.
func NewSignerFromConfig(cfg config.TokenConfig) (Signer, error) {
	if cfg.GetPrivateKeyPEM() != "" && cfg.GetPublicKeyPEM() != "" {
		keyPair, err := LoadKeyPairFromPEM(defaultKeyID, cfg.GetPrivateKeyPEM(), cfg.GetPublicKeyPEM())
		if err != nil {
			return nil, fmt.Errorf("failed to load signing key pair: %w", err)
		}
		return NewKeyPairSigner(keyPair), nil
	}

	if cfg.GetSigningKey() != "" {
		return NewHMACSigner(cfg.GetSigningKey()), nil
	}

	return nil, errs.ErrMissingSigningKey
}
