package jwks

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func newTestCertificateDER(t *testing.T, key *rsa.PrivateKey) []byte {
	t.Helper()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return der
}

func modulusAndExponent(pub *rsa.PublicKey) (n, e string) {
	n = base64.RawURLEncoding.EncodeToString(pub.N.Bytes())
	e = base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes())
	return n, e
}

func TestIsSigningKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  JSONWebKey
		want bool
	}{
		{"non-RSA key type", JSONWebKey{Kty: "EC", Kid: "a", Use: "sig", N: "n", E: "e"}, false},
		{"missing key id", JSONWebKey{Kty: "RSA", Use: "sig", N: "n", E: "e"}, false},
		{"encryption key", JSONWebKey{Kty: "RSA", Kid: "a", Use: "enc", N: "n", E: "e"}, false},
		{"no key material", JSONWebKey{Kty: "RSA", Kid: "a", Use: "sig"}, false},
		{"modulus without exponent", JSONWebKey{Kty: "RSA", Kid: "a", Use: "sig", N: "n"}, false},
		{"certificate chain", JSONWebKey{Kty: "RSA", Kid: "a", Use: "sig", X5c: []string{"cert"}}, true},
		{"modulus and exponent", JSONWebKey{Kty: "RSA", Kid: "a", Use: "sig", N: "n", E: "e"}, true},
		{"no use field", JSONWebKey{Kty: "RSA", Kid: "a", N: "n", E: "e"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isSigningKey(tt.key))
		})
	}
}

func TestConvertKeyUsesFirstCertificateOnly(t *testing.T) {
	t.Parallel()

	first := newTestCertificateDER(t, newTestRSAKey(t))
	second := newTestCertificateDER(t, newTestRSAKey(t))

	key, err := convertKey(JSONWebKey{
		Kty: "RSA",
		Kid: "abc",
		X5c: []string{
			base64.StdEncoding.EncodeToString(first),
			base64.StdEncoding.EncodeToString(second),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "abc", key.KeyID)
	assert.Empty(t, key.RSAPublicKeyPEM)

	block, _ := pem.Decode([]byte(key.CertificatePEM))
	require.NotNil(t, block)
	assert.Equal(t, "CERTIFICATE", block.Type)
	assert.Equal(t, first, block.Bytes)
}

func TestConvertKeyFromModulusAndExponent(t *testing.T) {
	t.Parallel()

	rsaKey := newTestRSAKey(t)
	n, e := modulusAndExponent(&rsaKey.PublicKey)
	nbf := int64(1700000000)

	key, err := convertKey(JSONWebKey{Kty: "RSA", Kid: "abc", Use: "sig", N: n, E: e, Nbf: &nbf})
	require.NoError(t, err)

	assert.Equal(t, "abc", key.KeyID)
	assert.Equal(t, time.Unix(nbf, 0), key.NotBefore)
	assert.Empty(t, key.CertificatePEM)

	pub, err := key.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, 0, pub.N.Cmp(rsaKey.PublicKey.N))
	assert.Equal(t, rsaKey.PublicKey.E, pub.E)
}

func TestConvertKeyCertificateWins(t *testing.T) {
	t.Parallel()

	rsaKey := newTestRSAKey(t)
	n, e := modulusAndExponent(&rsaKey.PublicKey)
	der := newTestCertificateDER(t, rsaKey)

	key, err := convertKey(JSONWebKey{
		Kty: "RSA",
		Kid: "abc",
		X5c: []string{base64.StdEncoding.EncodeToString(der)},
		N:   n,
		E:   e,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, key.CertificatePEM)
	assert.Empty(t, key.RSAPublicKeyPEM)
}

func TestConvertKeyCorruptMaterial(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  JSONWebKey
	}{
		{"certificate is not base64", JSONWebKey{Kty: "RSA", Kid: "bad", X5c: []string{"!!!"}}},
		{"certificate is not DER", JSONWebKey{Kty: "RSA", Kid: "bad", X5c: []string{base64.StdEncoding.EncodeToString([]byte("junk"))}}},
		{"modulus is not base64url", JSONWebKey{Kty: "RSA", Kid: "bad", N: "!!!", E: "AQAB"}},
		{"exponent is not base64url", JSONWebKey{Kty: "RSA", Kid: "bad", N: "AQAB", E: "!!!"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := convertKey(tt.key)
			var convErr *ConversionError
			require.ErrorAs(t, err, &convErr)
			assert.Equal(t, "bad", convErr.KeyID)
		})
	}
}

func TestSigningKeyPublicKeyFromCertificate(t *testing.T) {
	t.Parallel()

	rsaKey := newTestRSAKey(t)
	der := newTestCertificateDER(t, rsaKey)

	key, err := convertKey(JSONWebKey{Kty: "RSA", Kid: "abc", X5c: []string{base64.StdEncoding.EncodeToString(der)}})
	require.NoError(t, err)
	assert.Equal(t, key.CertificatePEM, key.PEM())

	pub, err := key.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, 0, pub.N.Cmp(rsaKey.PublicKey.N))
}

func TestConvertKeySet(t *testing.T) {
	t.Parallel()

	rsaKey := newTestRSAKey(t)
	n, e := modulusAndExponent(&rsaKey.PublicKey)

	t.Run("skips ineligible entries", func(t *testing.T) {
		keys, err := convertKeySet(&JSONWebKeySet{Keys: []JSONWebKey{
			{Kty: "EC", Kid: "ec-key", Use: "sig"},
			{Kty: "RSA", Kid: "enc-key", Use: "enc", N: n, E: e},
			{Kty: "RSA", Kid: "abc", Use: "sig", N: n, E: e},
		}}, discardLogger())
		require.NoError(t, err)
		require.Len(t, keys, 1)
		assert.Equal(t, "abc", keys[0].KeyID)
	})

	t.Run("all ineligible is an error", func(t *testing.T) {
		_, err := convertKeySet(&JSONWebKeySet{Keys: []JSONWebKey{
			{Kty: "RSA", Kid: "enc-key", Use: "enc", N: n, E: e},
		}}, discardLogger())
		assert.ErrorIs(t, err, ErrNoSigningKeys)
	})

	t.Run("corrupt eligible entry fails the batch", func(t *testing.T) {
		_, err := convertKeySet(&JSONWebKeySet{Keys: []JSONWebKey{
			{Kty: "RSA", Kid: "abc", Use: "sig", N: n, E: e},
			{Kty: "RSA", Kid: "bad", Use: "sig", N: "!!!", E: "AQAB"},
		}}, discardLogger())
		var convErr *ConversionError
		require.True(t, errors.As(err, &convErr))
		assert.Equal(t, "bad", convErr.KeyID)
	})
}
