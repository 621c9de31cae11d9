package jwt_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/pkg/jwt"
)

var secret = []byte("test-secret")

func TestHMACVerifier_RoundTrip(t *testing.T) {
	token, err := jwt.GenerateToken(secret, "user_123", time.Hour)
	require.NoError(t, err)

	subject, err := jwt.NewHMACVerifier(secret).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user_123", subject)
}

func TestHMACVerifier_Rejects(t *testing.T) {
	v := jwt.NewHMACVerifier(secret)

	_, err := v.Verify("")
	assert.ErrorIs(t, err, jwt.ErrMissingToken)

	_, err = v.Verify("not-a-token")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)

	other, err := jwt.GenerateToken([]byte("other-secret"), "user_123", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(other)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)

	expired, err := jwt.GenerateToken(secret, "user_123", -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)

	noSubject, err := jwt.GenerateToken(secret, "", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(noSubject)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)

	noExpiry, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.RegisteredClaims{Subject: "user_123"}).SignedString(secret)
	require.NoError(t, err)
	_, err = v.Verify(noExpiry)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestRSAVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	v, err := jwt.NewRSAVerifier(publicPEM)
	require.NoError(t, err)

	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodRS256, gojwt.RegisteredClaims{
		Subject:   "user_rsa",
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(key)
	require.NoError(t, err)

	subject, err := v.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user_rsa", subject)

	// an HS256 token must not pass an RS256 verifier
	hmacToken, err := jwt.GenerateToken(publicPEM, "user_rsa", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(hmacToken)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)

	_, err = jwt.NewRSAVerifier([]byte("garbage"))
	assert.Error(t, err)
}
