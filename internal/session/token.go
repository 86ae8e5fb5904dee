package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// Claims carried by an access token
type Claims struct {
	TenantID string `json:"tid,omitempty"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies session tokens. Access tokens are HS256 JWTs;
// refresh tokens are opaque random values the store tracks.
type Issuer struct {
	signingKey []byte
	accessTTL  time.Duration
	issuer     string
}

// NewIssuer creates a token issuer
func NewIssuer(signingKey []byte, accessTTL time.Duration, issuer string) *Issuer {
	return &Issuer{
		signingKey: signingKey,
		accessTTL:  accessTTL,
		issuer:     issuer,
	}
}

// IssueAccessToken mints an access token for a user, optionally bound to the
// tenant the session was opened on.
func (i *Issuer) IssueAccessToken(userID, tenantID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(i.accessTTL)
	claims := Claims{
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseAccessToken verifies a token and returns its claims
func (i *Issuer) ParseAccessToken(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.signingKey, nil
	}, jwt.WithIssuer(i.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// NewRefreshToken generates an opaque refresh token
func NewRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
