package tokenizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/layer-3/tutti/core"
	"github.com/layer-3/tutti/ports"
)

// DefaultTTL matches the default cookie expiration of 7 days
const DefaultTTL = 7 * 24 * time.Hour

var ErrEmptySecret = errors.New("jwt secret must not be empty")

// JWTTokenizer implements the Tokenizer interface using HS256 JWTs
type JWTTokenizer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a JWTTokenizer
type Option func(*JWTTokenizer)

// WithClock overrides the time source used for issuing and validating tokens
func WithClock(now func() time.Time) Option {
	return func(j *JWTTokenizer) {
		j.now = now
	}
}

// NewJWTTokenizer creates a new JWT tokenizer. The secret is copied and never exposed.
func NewJWTTokenizer(secret string, ttl time.Duration, opts ...Option) (ports.Tokenizer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	j := &JWTTokenizer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}

	return j, nil
}

// TTL returns the lifetime of issued tokens
func (j *JWTTokenizer) TTL() time.Duration {
	return j.ttl
}

// IdentityToToken signs an identity assertion
func (j *JWTTokenizer) IdentityToToken(id core.Identity) (string, error) {
	now := j.now()
	claims := IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
		Email: id.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

// TokenToIdentity verifies signature and expiry and returns the asserted identity
func (j *JWTTokenizer) TokenToIdentity(tokenStr string) (core.Identity, error) {
	claims := &IdentityClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(j.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return core.Identity{}, core.ErrTokenExpired
		}
		return core.Identity{}, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}

	if !token.Valid {
		return core.Identity{}, core.ErrInvalidToken
	}

	if claims.Subject == "" || claims.Email == "" {
		return core.Identity{}, fmt.Errorf("%w: missing subject or email", core.ErrInvalidToken)
	}

	return core.Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
	}, nil
}
