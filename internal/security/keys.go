package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"strings"
)

// ErrInvalidKey is returned when key material is empty, not PEM, or of an
// unsupported type.
var ErrInvalidKey = errors.New("invalid key")

// ParsePrivateKey parses the RSA or ECDSA private key in s, which may be
// inline PEM or a path to a PEM file. The access and refresh key pairs
// configured via ACCESS_PRIVATE_KEY and REFRESH_PRIVATE_KEY both load through
// this function.
func ParsePrivateKey(s string) (crypto.Signer, error) {
	block, err := decodeKeyPEM(s)
	if err != nil {
		return nil, err
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, ErrInvalidKey
		}
		return signer, nil
	default:
		return nil, ErrInvalidKey
	}
}

// ParsePublicKey parses the RSA or ECDSA public key in s, inline PEM or a
// file path, mirroring ParsePrivateKey for the verification halves of the
// key pairs.
func ParsePublicKey(s string) (crypto.PublicKey, error) {
	block, err := decodeKeyPEM(s)
	if err != nil {
		return nil, err
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		return x509.ParsePKIXPublicKey(block.Bytes)
	default:
		return nil, ErrInvalidKey
	}
}

// KeyAlg maps a public key to its JWT signing algorithm: "RS256" for RSA,
// "ES256" for ECDSA, empty for anything else.
func KeyAlg(pub crypto.PublicKey) string {
	switch pub.(type) {
	case *rsa.PublicKey:
		return "RS256"
	case *ecdsa.PublicKey:
		return "ES256"
	default:
		return ""
	}
}

// decodeKeyPEM resolves s to PEM bytes and decodes the first block. A value
// starting with a PEM header is used as-is; anything else is treated as a
// file path.
func decodeKeyPEM(s string) (*pem.Block, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	pemBytes := []byte(s)
	if !strings.HasPrefix(s, "-----BEGIN") {
		var err error
		pemBytes, err = os.ReadFile(s)
		if err != nil {
			return nil, err
		}
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidKey
	}
	return block, nil
}
