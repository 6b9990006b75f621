package token_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	errs "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/stretchr/testify/require"
)

const (
	secretStr = "1234"
	issuer    = "com.testissuer"
	skew      = time.Second
)

var (
	testIdentity = users.Identity{ID: "user-1", Email: "timdoe@mail.com", Name: "Tim Doe"}
	baseTime     = time.Unix(1_700_000_000, 0)
)

// freezeTime pins token.NowTimeFunc and returns a setter to move the clock.
func freezeTime(t *testing.T, at time.Time) func(time.Time) {
	t.Helper()
	current := at
	token.NowTimeFunc = func() time.Time { return current }
	t.Cleanup(func() { token.NowTimeFunc = time.Now })
	return func(next time.Time) { current = next }
}

func newCodec(t *testing.T, signer token.Signer) *token.Codec {
	t.Helper()
	c, err := token.NewCodec(signer, issuer, skew)
	require.NoError(t, err)
	return c
}

func TestSignVerify_RoundTrip(t *testing.T) {
	freezeTime(t, baseTime)
	c := newCodec(t, token.NewHMACSigner(secretStr))

	access := token.AccessPayload{User: testIdentity, SessionID: "session-1"}
	signed, err := c.Sign(access, 15*time.Minute)
	require.NoError(t, err)

	p, err := c.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, access, p)

	refresh := token.RefreshPayload{SessionID: "session-1"}
	signed, err = c.Sign(&refresh, 24*time.Hour)
	require.NoError(t, err)

	p, err = c.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, refresh, p)
}

func TestSign_NewTokenEachTime(t *testing.T) {
	freezeTime(t, baseTime)
	c := newCodec(t, token.NewHMACSigner(secretStr))

	payload := token.RefreshPayload{SessionID: "session-1"}
	first, err := c.Sign(payload, time.Hour)
	require.NoError(t, err)
	second, err := c.Sign(payload, time.Hour)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	setNow := freezeTime(t, baseTime)
	c := newCodec(t, token.NewHMACSigner(secretStr))

	ttl := 10 * time.Minute
	signed, err := c.Sign(token.RefreshPayload{SessionID: "session-1"}, ttl)
	require.NoError(t, err)
	expiry := baseTime.Add(ttl)

	setNow(expiry)
	_, err = c.Verify(signed)
	require.NoError(t, err, "token must be accepted at its expiry instant")

	setNow(expiry.Add(skew - time.Millisecond))
	_, err = c.Verify(signed)
	require.NoError(t, err, "token must be accepted inside the skew window")

	setNow(expiry.Add(skew))
	_, err = c.Verify(signed)
	require.ErrorIs(t, err, errs.ErrTokenExpired)
}

func TestVerify_IssuedInFuture(t *testing.T) {
	setNow := freezeTime(t, baseTime)
	c := newCodec(t, token.NewHMACSigner(secretStr))

	signed, err := c.Sign(token.RefreshPayload{SessionID: "session-1"}, time.Hour)
	require.NoError(t, err)

	setNow(baseTime.Add(-skew))
	_, err = c.Verify(signed)
	require.NoError(t, err, "skew applies to issued-at as well")

	setNow(baseTime.Add(-2 * skew))
	_, err = c.Verify(signed)
	require.Error(t, err)
	require.NotErrorIs(t, err, errs.ErrTokenExpired)
}

func TestVerify_InvalidSignature(t *testing.T) {
	freezeTime(t, baseTime)
	c := newCodec(t, token.NewHMACSigner(secretStr))
	other := newCodec(t, token.NewHMACSigner("another-secret"))

	signed, err := other.Sign(token.AccessPayload{User: testIdentity, SessionID: "session-1"}, time.Minute)
	require.NoError(t, err)

	_, err = c.Verify(signed)
	require.ErrorIs(t, err, errs.ErrInvalidSignature)

	// A bad signature wins over expiry so no renewal is ever attempted.
	freezeTime(t, baseTime.Add(time.Hour))
	_, err = c.Verify(signed)
	require.ErrorIs(t, err, errs.ErrInvalidSignature)
	require.NotErrorIs(t, err, errs.ErrTokenExpired)
}

func TestVerify_TamperedPayload(t *testing.T) {
	freezeTime(t, baseTime)
	c := newCodec(t, token.NewHMACSigner(secretStr))

	signed, err := c.Sign(token.AccessPayload{User: testIdentity, SessionID: "session-1"}, time.Minute)
	require.NoError(t, err)
	forged, err := c.Sign(token.AccessPayload{User: users.Identity{ID: "admin"}, SessionID: "session-2"}, time.Minute)
	require.NoError(t, err)

	parts := strings.Split(signed, ".")
	forgedParts := strings.Split(forged, ".")
	tampered := parts[0] + "." + forgedParts[1] + "." + parts[2]

	_, err = c.Verify(tampered)
	require.ErrorIs(t, err, errs.ErrInvalidSignature)
}

func TestVerify_Malformed(t *testing.T) {
	freezeTime(t, baseTime)
	c := newCodec(t, token.NewHMACSigner(secretStr))

	for _, raw := range []string{"", "not-a-token", "a.b", "a.b.c"} {
		_, err := c.Verify(raw)
		require.ErrorIs(t, err, errs.ErrMalformedToken, raw)
	}
}

func TestVerify_UnexpectedShape(t *testing.T) {
	freezeTime(t, baseTime)
	signer := token.NewHMACSigner(secretStr)
	c := newCodec(t, signer)

	tests := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{"unknown type", jwt.MapClaims{"typ": "id", "sid": "s"}},
		{"missing session", jwt.MapClaims{"typ": "access", "sub": "user-1"}},
		{"access without subject", jwt.MapClaims{"typ": "access", "sid": "s"}},
		{"refresh with user data", jwt.MapClaims{"typ": "refresh", "sid": "s", "email": "a@b.c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.claims["iss"] = issuer
			tt.claims["iat"] = baseTime.Unix()
			tt.claims["exp"] = baseTime.Add(time.Minute).Unix()
			signed, err := signer.Sign(tt.claims)
			require.NoError(t, err)

			_, err = c.Verify(signed)
			require.ErrorIs(t, err, errs.ErrMalformedToken)
		})
	}
}

func TestVerify_MissingExpiry(t *testing.T) {
	freezeTime(t, baseTime)
	signer := token.NewHMACSigner(secretStr)
	c := newCodec(t, signer)

	signed, err := signer.Sign(jwt.MapClaims{"typ": "refresh", "sid": "s", "iss": issuer})
	require.NoError(t, err)

	_, err = c.Verify(signed)
	require.ErrorIs(t, err, errs.ErrMalformedToken)
}

func TestVerify_WrongIssuer(t *testing.T) {
	freezeTime(t, baseTime)
	signer := token.NewHMACSigner(secretStr)
	c := newCodec(t, signer)
	foreign, err := token.NewCodec(signer, "someone-else", skew)
	require.NoError(t, err)

	signed, err := foreign.Sign(token.RefreshPayload{SessionID: "s"}, time.Minute)
	require.NoError(t, err)

	_, err = c.Verify(signed)
	require.ErrorIs(t, err, errs.ErrInvalidSignature)
}

func TestVerifyTyped(t *testing.T) {
	freezeTime(t, baseTime)
	c := newCodec(t, token.NewHMACSigner(secretStr))

	access, err := c.Sign(token.AccessPayload{User: testIdentity, SessionID: "session-1"}, time.Minute)
	require.NoError(t, err)
	refresh, err := c.Sign(token.RefreshPayload{SessionID: "session-1"}, time.Hour)
	require.NoError(t, err)

	ap, err := c.VerifyAccess(access)
	require.NoError(t, err)
	require.Equal(t, testIdentity, ap.User)

	rp, err := c.VerifyRefresh(refresh)
	require.NoError(t, err)
	require.Equal(t, "session-1", rp.SessionID)

	_, err = c.VerifyAccess(refresh)
	require.ErrorIs(t, err, errs.ErrMalformedToken)
	_, err = c.VerifyRefresh(access)
	require.ErrorIs(t, err, errs.ErrMalformedToken)
}

func TestKeyPairSigner(t *testing.T) {
	freezeTime(t, baseTime)

	rsaPair, err := token.GenerateRSAKeyPair("rsa-1", 2048)
	require.NoError(t, err)
	ecPair, err := token.GenerateECDSAKeyPair("ec-1")
	require.NoError(t, err)

	for _, kp := range []*token.KeyPair{rsaPair, ecPair} {
		t.Run(kp.Algorithm, func(t *testing.T) {
			c := newCodec(t, token.NewKeyPairSigner(kp))

			signed, err := c.Sign(token.AccessPayload{User: testIdentity, SessionID: "s"}, time.Minute)
			require.NoError(t, err)

			p, err := c.VerifyAccess(signed)
			require.NoError(t, err)
			require.Equal(t, "s", p.SessionID)
		})
	}
}

func TestVerify_RejectsAlgorithmSwitch(t *testing.T) {
	freezeTime(t, baseTime)

	kp, err := token.GenerateRSAKeyPair("rsa-1", 2048)
	require.NoError(t, err)
	rsaCodec := newCodec(t, token.NewKeyPairSigner(kp))

	publicPEM, err := kp.ExportPublicKeyPEM()
	require.NoError(t, err)
	hmacCodec := newCodec(t, token.NewHMACSigner(publicPEM))

	signed, err := hmacCodec.Sign(token.RefreshPayload{SessionID: "s"}, time.Minute)
	require.NoError(t, err)

	_, err = rsaCodec.Verify(signed)
	require.ErrorIs(t, err, errs.ErrInvalidSignature)
}

func TestNewCodec_MissingSigner(t *testing.T) {
	_, err := token.NewCodec(nil, issuer, skew)
	require.ErrorIs(t, err, errs.ErrMissingSigningKey)

	_, err = token.NewCodec(token.NewHMACSigner(secretStr), issuer, -time.Second)
	require.Error(t, err)
}
