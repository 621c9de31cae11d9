package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing authorization token")
)

// Claims represents the session token issued by the identity provider.
// Subject carries the provider user id.
type Claims struct {
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates provider session tokens with a fixed key and algorithm.
type Verifier struct {
	key    interface{}
	method string
}

// NewHMACVerifier verifies HS256 tokens signed with secret.
func NewHMACVerifier(secret []byte) *Verifier {
	return &Verifier{key: secret, method: jwt.SigningMethodHS256.Alg()}
}

// NewRSAVerifier verifies RS256 tokens against a PEM encoded public key.
func NewRSAVerifier(publicKeyPEM []byte) (*Verifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, err
	}
	return &Verifier{key: key, method: jwt.SigningMethodRS256.Alg()}, nil
}

// ValidateToken parses and validates a JWT token
func (v *Verifier) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.key, nil
	}, jwt.WithValidMethods([]string{v.method}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify returns the session subject of a valid token.
func (v *Verifier) Verify(tokenString string) (string, error) {
	claims, err := v.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// GenerateToken creates an HS256 session token for subject. Used by local
// tooling and tests; production tokens come from the identity provider.
func GenerateToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "stockflow",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
