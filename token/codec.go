package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	errs "github.com/jrsteele09/go-session-auth/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Codec signs and verifies access and refresh tokens. It holds no mutable
// state and is safe for concurrent use.
type Codec struct {
	signer    Signer
	issuer    string
	clockSkew time.Duration
}

// NewCodec creates a codec around the process-wide signer. clockSkew is
// applied in both directions when checking exp and iat.
func NewCodec(signer Signer, issuer string, clockSkew time.Duration) (*Codec, error) {
	if signer == nil {
		return nil, errs.ErrMissingSigningKey
	}
	if clockSkew < 0 {
		return nil, fmt.Errorf("clock skew must not be negative: %s", clockSkew)
	}
	return &Codec{
		signer:    signer,
		issuer:    issuer,
		clockSkew: clockSkew,
	}, nil
}

// Sign issues a new token for payload expiring ttl from now.
func (c *Codec) Sign(p Payload, ttl time.Duration) (string, error) {
	cl, ok := claimsFor(p)
	if !ok {
		return "", fmt.Errorf("unsupported payload type %T", p)
	}

	now := NowTimeFunc()
	cl.ID = uuid.New().String()
	cl.Issuer = c.issuer
	cl.IssuedAt = jwt.NewNumericDate(now)
	cl.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	signed, err := c.signer.Sign(cl)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", p.Kind(), err)
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry and returns the typed payload.
// Failures wrap exactly one of ErrMalformedToken, ErrInvalidSignature or
// ErrTokenExpired. The signature is checked before any claim, so a tampered
// token is never reported as expired.
func (c *Codec) Verify(tokenString string) (Payload, error) {
	cl := &claims{}
	_, err := jwt.ParseWithClaims(tokenString, cl, c.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{c.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(NowTimeFunc),
		jwt.WithLeeway(c.clockSkew),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(c.issuer),
	)
	if err != nil {
		return nil, classify(err)
	}

	p, ok := cl.payload()
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims shape", errs.ErrMalformedToken)
	}
	return p, nil
}

// VerifyAccess verifies tokenString and requires an access payload.
func (c *Codec) VerifyAccess(tokenString string) (*AccessPayload, error) {
	p, err := c.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	access, ok := p.(AccessPayload)
	if !ok {
		return nil, fmt.Errorf("%w: expected access token, got %s", errs.ErrMalformedToken, p.Kind())
	}
	return &access, nil
}

// VerifyRefresh verifies tokenString and requires a refresh payload.
func (c *Codec) VerifyRefresh(tokenString string) (*RefreshPayload, error) {
	p, err := c.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	refresh, ok := p.(RefreshPayload)
	if !ok {
		return nil, fmt.Errorf("%w: expected refresh token, got %s", errs.ErrMalformedToken, p.Kind())
	}
	return &refresh, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: %v", errs.ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", errs.ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", errs.ErrMalformedToken, err)
	}
}
