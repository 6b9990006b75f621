package token_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-auth/internal/config"
	errs "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/stretchr/testify/require"
)

func exportPEM(t *testing.T, kp *token.KeyPair) (string, string) {
	t.Helper()
	privatePEM, err := kp.ExportPrivateKeyPEM()
	require.NoError(t, err)
	publicPEM, err := kp.ExportPublicKeyPEM()
	require.NoError(t, err)
	return privatePEM, publicPEM
}

func TestLoadKeyPairFromPEM_Inline(t *testing.T) {
	freezeTime(t, baseTime)

	generated, err := token.GenerateECDSAKeyPair("ec-1")
	require.NoError(t, err)
	privatePEM, publicPEM := exportPEM(t, generated)

	loaded, err := token.LoadKeyPairFromPEM("ec-1", privatePEM, publicPEM)
	require.NoError(t, err)
	require.Equal(t, "ES256", loaded.Algorithm)

	// Tokens from the generated pair verify with the loaded pair.
	signed, err := newCodec(t, token.NewKeyPairSigner(generated)).Sign(token.RefreshPayload{SessionID: "s"}, time.Minute)
	require.NoError(t, err)
	_, err = newCodec(t, token.NewKeyPairSigner(loaded)).VerifyRefresh(signed)
	require.NoError(t, err)
}

func TestLoadKeyPairFromPEM_Files(t *testing.T) {
	generated, err := token.GenerateRSAKeyPair("rsa-1", 2048)
	require.NoError(t, err)
	privatePEM, publicPEM := exportPEM(t, generated)

	dir := t.TempDir()
	privatePath := filepath.Join(dir, "private.pem")
	publicPath := filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(privatePath, []byte(privatePEM), 0o600))
	require.NoError(t, os.WriteFile(publicPath, []byte(publicPEM), 0o600))

	loaded, err := token.LoadKeyPairFromPEM("rsa-1", privatePath, publicPath)
	require.NoError(t, err)
	require.Equal(t, "RS256", loaded.Algorithm)
}

func TestWritePEMFiles(t *testing.T) {
	generated, err := token.GenerateECDSAKeyPair("ec-1")
	require.NoError(t, err)

	privatePath, publicPath, err := generated.WritePEMFiles(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "ec-1.pem", filepath.Base(privatePath))

	info, err := os.Stat(privatePath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := token.LoadKeyPairFromPEM("ec-1", privatePath, publicPath)
	require.NoError(t, err)
	require.Equal(t, "ES256", loaded.Algorithm)
}

func TestLoadKeyPairFromPEM_Invalid(t *testing.T) {
	_, err := token.LoadKeyPairFromPEM("k", "", "")
	require.Error(t, err)

	_, err = token.LoadKeyPairFromPEM("k", "-----BEGIN NOTHING-----", "-----BEGIN NOTHING-----")
	require.Error(t, err)

	_, err = token.LoadKeyPairFromPEM("k", filepath.Join(t.TempDir(), "missing.pem"), "x")
	require.Error(t, err)
}

func TestLoadKeyPairFromPEM_Mismatched(t *testing.T) {
	rsaPair, err := token.GenerateRSAKeyPair("rsa-1", 2048)
	require.NoError(t, err)
	ecPairA, err := token.GenerateECDSAKeyPair("ec-a")
	require.NoError(t, err)
	ecPairB, err := token.GenerateECDSAKeyPair("ec-b")
	require.NoError(t, err)

	rsaPrivate, _ := exportPEM(t, rsaPair)
	_, ecPublicA := exportPEM(t, ecPairA)
	ecPrivateB, _ := exportPEM(t, ecPairB)

	tests := []struct {
		name       string
		privatePEM string
		publicPEM  string
	}{
		{"rsa private with ec public", rsaPrivate, ecPublicA},
		{"ec private from another pair", ecPrivateB, ecPublicA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := token.LoadKeyPairFromPEM("k", tt.privatePEM, tt.publicPEM)
			require.Error(t, err)
		})
	}
}

func TestLoadKeyPairFromPEM_WrongCurve(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)
	kp := &token.KeyPair{KeyID: "ec-384", PrivateKey: key, PublicKey: &key.PublicKey, Algorithm: "ES256"}
	privatePEM, publicPEM := exportPEM(t, kp)

	_, err = token.LoadKeyPairFromPEM("ec-384", privatePEM, publicPEM)
	require.Error(t, err)
}

type tokenConfig struct {
	config.TokenConfig
	signingKey string
	privatePEM string
	publicPEM  string
}

func (c tokenConfig) GetSigningKey() string    { return c.signingKey }
func (c tokenConfig) GetPrivateKeyPEM() string { return c.privatePEM }
func (c tokenConfig) GetPublicKeyPEM() string  { return c.publicPEM }

func TestNewSignerFromConfig(t *testing.T) {
	_, err := token.NewSignerFromConfig(tokenConfig{})
	require.ErrorIs(t, err, errs.ErrMissingSigningKey)

	signer, err := token.NewSignerFromConfig(tokenConfig{signingKey: secretStr})
	require.NoError(t, err)
	require.Equal(t, "HS256", signer.GetSigningMethod().Alg())

	kp, err := token.GenerateECDSAKeyPair("ec-1")
	require.NoError(t, err)
	privatePEM, publicPEM := exportPEM(t, kp)

	signer, err = token.NewSignerFromConfig(tokenConfig{signingKey: secretStr, privatePEM: privatePEM, publicPEM: publicPEM})
	require.NoError(t, err)
	require.Equal(t, "ES256", signer.GetSigningMethod().Alg())

	_, err = token.NewSignerFromConfig(tokenConfig{privatePEM: "garbage", publicPEM: "garbage"})
	require.Error(t, err)
}
