package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quickcart/catalog-api/internal/config"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the claim set carried by self-issued tokens
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// Issuer mints and verifies signed bearer tokens with a fixed lifetime.
// The signing key is process-wide configuration loaded once at startup.
type Issuer struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience string
	now      func() time.Time
}

func NewIssuer(cfg *config.JWTConfig) *Issuer {
	return &Issuer{
		secret:   []byte(cfg.Secret),
		ttl:      cfg.TTL,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
	}
}

// Issue mints an HS256 token bound to the user identity. Returns the signed
// token and its lifetime in seconds.
func (i *Issuer) Issue(userID, username string) (string, int, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Username: username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, int(i.ttl.Seconds()), nil
}

// Verify parses and validates a token string, returning its claims.
// Expired, malformed, or foreign-signed tokens all fail.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return i.now() }),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
