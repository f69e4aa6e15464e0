package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
)

// ErrInvalidToken is returned for malformed, expired or revoked bearer tokens.
var ErrInvalidToken = fmt.Errorf("%w: invalid token", httpx.ErrUnauthorized)

// Claims is the payload of a bearer token.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 bearer tokens for the single-page app.
// With a Redis client, logged-out tokens are remembered until they expire.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	client *redis.Client
	now    func() time.Time
}

// NewTokens builds Tokens. client may be nil, which disables revocation.
func NewTokens(secret string, ttl time.Duration, client *redis.Client) *Tokens {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, client: client, now: time.Now}
}

// Issue signs a token for the user.
func (t *Tokens) Issue(u User) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := Claims{
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			Issuer:    "tailorflow",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies the signature, expiry and revocation of raw.
func (t *Tokens) Parse(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer("tailorflow"),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if t.client != nil && claims.ID != "" {
		n, err := t.client.Exists(ctx, revokedKey(claims.ID)).Result()
		if err != nil {
			return nil, fmt.Errorf("token revocation lookup: %w", err)
		}
		if n > 0 {
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}

// Revoke remembers the token id until the token would have expired anyway.
func (t *Tokens) Revoke(ctx context.Context, c *Claims) error {
	if t.client == nil || c == nil || c.ID == "" || c.ExpiresAt == nil {
		return nil
	}
	ttl := c.ExpiresAt.Time.Sub(t.now())
	if ttl <= 0 {
		return nil
	}
	if err := t.client.Set(ctx, revokedKey(c.ID), "1", ttl).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func revokedKey(id string) string {
	return "tailorflow:revoked:" + id
}
