package jwks

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// SigningKey is a verification key resolved from a JWKS entry. Exactly one of
// CertificatePEM and RSAPublicKeyPEM is populated, depending on whether the
// source entry carried a certificate chain or raw modulus/exponent material.
type SigningKey struct {
	KeyID           string
	NotBefore       time.Time
	CertificatePEM  string
	RSAPublicKeyPEM string
}

// PEM returns whichever representation the key holds, ready to hand to a JWT
// verifier.
func (k *SigningKey) PEM() string {
	if k.CertificatePEM != "" {
		return k.CertificatePEM
	}
	return k.RSAPublicKeyPEM
}

// PublicKey parses the held PEM back into an RSA public key. For the
// certificate form it is the certificate's subject public key.
func (k *SigningKey) PublicKey() (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(k.PEM()))
	if block == nil {
		return nil, errors.New("signing key holds no PEM block")
	}
	if block.Type == "CERTIFICATE" {
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		pub, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("certificate holds a %T, not an RSA key", cert.PublicKey)
		}
		return pub, nil
	}
	return x509.ParsePKCS1PublicKey(block.Bytes)
}

// isSigningKey reports whether a key set entry is eligible for conversion.
// Ineligible entries are skipped, not failed: providers routinely publish
// encryption keys and keys without ids alongside their signing keys.
func isSigningKey(key JSONWebKey) bool {
	if key.Kty != "RSA" {
		return false
	}
	if key.Kid == "" {
		return false
	}
	if key.Use != "" && key.Use != "sig" {
		return false
	}
	return len(key.X5c) > 0 || (key.N != "" && key.E != "")
}

// convertKey turns one eligible entry into a SigningKey. The first x5c
// certificate wins when a chain is present; otherwise the key is built from
// the raw modulus and exponent.
func convertKey(key JSONWebKey) (*SigningKey, error) {
	sk := &SigningKey{KeyID: key.Kid}
	if key.Nbf != nil {
		sk.NotBefore = time.Unix(*key.Nbf, 0)
	}

	if len(key.X5c) > 0 {
		pemText, err := certificateToPEM(key.X5c[0])
		if err != nil {
			return nil, &ConversionError{KeyID: key.Kid, Err: err}
		}
		sk.CertificatePEM = pemText
		return sk, nil
	}

	pemText, err := rsaPublicKeyToPEM(key.N, key.E)
	if err != nil {
		return nil, &ConversionError{KeyID: key.Kid, Err: err}
	}
	sk.RSAPublicKeyPEM = pemText
	return sk, nil
}

func certificateToPEM(b64 string) (string, error) {
	der, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("error decoding certificate: %w", err)
	}
	if _, err := x509.ParseCertificate(der); err != nil {
		return "", fmt.Errorf("error parsing certificate: %w", err)
	}
	return encodePEM("CERTIFICATE", der)
}

func rsaPublicKeyToPEM(n, e string) (string, error) {
	modulus, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return "", fmt.Errorf("error decoding modulus: %w", err)
	}
	exponent, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return "", fmt.Errorf("error decoding exponent: %w", err)
	}

	pub := &rsa.PublicKey{
		N: new(big.Int).SetBytes(modulus),
		E: int(new(big.Int).SetBytes(exponent).Int64()),
	}
	return encodePEM("RSA PUBLIC KEY", x509.MarshalPKCS1PublicKey(pub))
}

func encodePEM(blockType string, der []byte) (string, error) {
	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: blockType, Bytes: der})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
