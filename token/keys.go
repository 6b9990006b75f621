package token

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// KeyPair represents a public/private key pair for signing tokens
type KeyPair struct {
	KeyID      string
	PrivateKey crypto.PrivateKey
	PublicKey  crypto.PublicKey
	Algorithm  string // RS256 or ES256
}

// GenerateRSAKeyPair generates a new RSA key pair for RS256 signing
func GenerateRSAKeyPair(keyID string, bits int) (*KeyPair, error) {
	if bits < 2048 {
		bits = 2048
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate RSA key")
	}

	return &KeyPair{
		KeyID:      keyID,
		PrivateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
		Algorithm:  "RS256",
	}, nil
}

// GenerateECDSAKeyPair generates a new ECDSA key pair for ES256 signing
func GenerateECDSAKeyPair(keyID string) (*KeyPair, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate ECDSA key")
	}

	return &KeyPair{
		KeyID:      keyID,
		PrivateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
		Algorithm:  "ES256",
	}, nil
}

// GetSigningMethod returns the JWT signing method for this key pair
func (kp *KeyPair) GetSigningMethod() jwt.SigningMethod {
	if kp.Algorithm == "ES256" {
		return jwt.SigningMethodES256
	}
	return jwt.SigningMethodRS256
}

// ExportPublicKeyPEM exports the public key as PEM
func (kp *KeyPair) ExportPublicKeyPEM() (string, error) {
	pubKeyBytes, err := x509.MarshalPKIXPublicKey(kp.PublicKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal public key")
	}

	pubKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubKeyBytes,
	})

	return string(pubKeyPEM), nil
}

// ExportPrivateKeyPEM exports the private key as PEM
func (kp *KeyPair) ExportPrivateKeyPEM() (string, error) {
	var privateKeyBytes []byte
	var err error
	var blockType string

	switch key := kp.PrivateKey.(type) {
	case *rsa.PrivateKey:
		privateKeyBytes = x509.MarshalPKCS1PrivateKey(key)
		blockType = "RSA PRIVATE KEY"
	case *ecdsa.PrivateKey:
		privateKeyBytes, err = x509.MarshalECPrivateKey(key)
		if err != nil {
			return "", errors.Wrap(err, "failed to marshal ECDSA private key")
		}
		blockType = "EC PRIVATE KEY"
	default:
		return "", errors.New("unsupported private key type")
	}

	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  blockType,
		Bytes: privateKeyBytes,
	})

	return string(privateKeyPEM), nil
}

// WritePEMFiles writes the pair as <dir>/<KeyID>.pem and <dir>/<KeyID>.pub.pem
// and returns both paths. The private key file is readable by the owner only.
func (kp *KeyPair) WritePEMFiles(dir string) (string, string, error) {
	privatePEM, err := kp.ExportPrivateKeyPEM()
	if err != nil {
		return "", "", err
	}
	publicPEM, err := kp.ExportPublicKeyPEM()
	if err != nil {
		return "", "", err
	}

	privatePath := filepath.Join(dir, kp.KeyID+".pem")
	publicPath := filepath.Join(dir, kp.KeyID+".pub.pem")
	if err := os.WriteFile(privatePath, []byte(privatePEM), 0o600); err != nil {
		return "", "", errors.Wrap(err, "failed to write private key")
	}
	if err := os.WriteFile(publicPath, []byte(publicPEM), 0o644); err != nil {
		return "", "", errors.Wrap(err, "failed to write public key")
	}
	return privatePath, publicPath, nil
}

// LoadKeyPairFromPEM builds a key pair from PEM material. Each argument may be
// inline PEM or a path to a PEM file. The algorithm follows the key type.
func LoadKeyPairFromPEM(keyID, privatePEM, publicPEM string) (*KeyPair, error) {
	privateKey, err := parsePrivateKey(privatePEM)
	if err != nil {
		return nil, err
	}
	publicKey, err := parsePublicKey(publicPEM)
	if err != nil {
		return nil, err
	}

	kp := &KeyPair{KeyID: keyID, PrivateKey: privateKey, PublicKey: publicKey}
	switch pub := publicKey.(type) {
	case *rsa.PublicKey:
		kp.Algorithm = "RS256"
	case *ecdsa.PublicKey:
		if pub.Curve != elliptic.P256() {
			return nil, errors.Errorf("ES256 requires a P-256 key, got %s", pub.Curve.Params().Name)
		}
		kp.Algorithm = "ES256"
	default:
		return nil, errors.New("unsupported public key type")
	}

	// The public key must be the one derived from the private key.
	derived, ok := privateKey.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !derived.Equal(publicKey) {
		return nil, errors.Errorf("private key %q does not match its public key", keyID)
	}
	return kp, nil
}

func loadPEM(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty key material")
	}
	if strings.HasPrefix(s, "-----BEGIN") {
		return []byte(s), nil
	}
	b, err := os.ReadFile(s)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read key file")
	}
	return b, nil
}

func parsePrivateKey(s string) (crypto.Signer, error) {
	pemBytes, err := loadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse RSA private key")
		}
		return key, nil
	case "EC PRIVATE KEY":
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse ECDSA private key")
		}
		return key, nil
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse PKCS8 private key")
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, errors.New("unsupported private key type")
		}
		return signer, nil
	default:
		return nil, errors.Errorf("unsupported PEM block %q", block.Type)
	}
}

func parsePublicKey(s string) (crypto.PublicKey, error) {
	pemBytes, err := loadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}

	switch block.Type {
	case "RSA PUBLIC KEY":
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse RSA public key")
		}
		return key, nil
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse public key")
		}
		return key, nil
	default:
		return nil, errors.Errorf("unsupported PEM block %q", block.Type)
	}
}
