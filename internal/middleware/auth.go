package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/sirupsen/logrus"

	"github.com/quickcart/catalog-api/internal/auth"
	"github.com/quickcart/catalog-api/internal/config"
	"github.com/quickcart/catalog-api/internal/metrics"
	apperrors "github.com/quickcart/catalog-api/pkg/errors"
)

// AuthMiddleware validates bearer tokens on protected routes and attaches
// the caller identity to the request context. Tokens are self-issued HS256
// by default; when a JWKS endpoint is configured, RS256/ES256 tokens from
// an external issuer are accepted instead.
type AuthMiddleware struct {
	config   *config.JWTConfig
	issuer   *auth.Issuer
	jwkCache *jwk.Cache
	logger   *logrus.Logger
}

func NewAuthMiddleware(cfg *config.JWTConfig, issuer *auth.Issuer, logger *logrus.Logger) (*AuthMiddleware, error) {
	m := &AuthMiddleware{
		config: cfg,
		issuer: issuer,
		logger: logger,
	}

	if cfg.JWKSEndpoint != "" {
		cache := jwk.NewCache(context.Background())
		if err := cache.Register(cfg.JWKSEndpoint, jwk.WithMinRefreshInterval(cfg.CacheTTL)); err != nil {
			return nil, fmt.Errorf("failed to register JWKS endpoint: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := cache.Refresh(ctx, cfg.JWKSEndpoint); err != nil {
			logger.WithError(err).Warn("Failed to pre-fetch JWKS, will try during first request")
		}

		m.jwkCache = cache
	}

	return m, nil
}

// RequireAuth rejects requests without a valid bearer token
func (a *AuthMiddleware) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			metrics.RecordAuthFailure("missing")
			return a.unauthorizedError(c, "Authorization header is required")
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			metrics.RecordAuthFailure("malformed")
			return a.unauthorizedError(c, "Authorization header must be a Bearer token")
		}

		tokenString := authHeader[len(bearerPrefix):]
		if tokenString == "" {
			metrics.RecordAuthFailure("malformed")
			return a.unauthorizedError(c, "Token is required")
		}

		userID, username, err := a.validateToken(c.Context(), tokenString)
		if err != nil {
			a.logger.WithError(err).WithField("path", c.Path()).Debug("Token validation failed")
			metrics.RecordAuthFailure("invalid")
			return a.unauthorizedError(c, "Token is invalid or expired")
		}

		c.Locals("user_id", userID)
		c.Locals("username", username)

		return c.Next()
	}
}

func (a *AuthMiddleware) validateToken(ctx context.Context, tokenString string) (userID, username string, err error) {
	if a.jwkCache != nil {
		return a.validateAgainstJWKS(ctx, tokenString)
	}

	claims, err := a.issuer.Verify(tokenString)
	if err != nil {
		return "", "", err
	}
	return claims.Subject, claims.Username, nil
}

// validateAgainstJWKS verifies externally issued tokens via the cached JWK
// set, selecting the key by the token's kid header.
func (a *AuthMiddleware) validateAgainstJWKS(ctx context.Context, tokenString string) (string, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		keyID, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("kid not found in token header")
		}

		set, err := a.jwkCache.Get(ctx, a.config.JWKSEndpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to get JWK set: %w", err)
		}

		key, found := set.LookupKeyID(keyID)
		if !found {
			return nil, fmt.Errorf("key with ID %s not found", keyID)
		}

		var verifyKey interface{}
		if err := key.Raw(&verifyKey); err != nil {
			return nil, fmt.Errorf("failed to get raw key: %w", err)
		}

		return verifyKey, nil
	},
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(a.config.Issuer),
		jwt.WithAudience(a.config.Audience),
	)
	if err != nil {
		return "", "", fmt.Errorf("token parsing failed: %w", err)
	}
	if !token.Valid {
		return "", "", fmt.Errorf("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("failed to get token claims")
	}

	sub, _ := claims["sub"].(string)
	name, _ := claims["username"].(string)
	return sub, name, nil
}

func (a *AuthMiddleware) unauthorizedError(c *fiber.Ctx, message string) error {
	appErr := apperrors.New(apperrors.CodeUnauthenticated, message, nil)
	return c.Status(appErr.HTTPStatus()).JSON(appErr.ToErrorResponse(c.Get("X-Request-ID")))
}

// GetUserID extracts the authenticated user ID from the request context
func GetUserID(c *fiber.Ctx) string {
	if userID, ok := c.Locals("user_id").(string); ok {
		return userID
	}
	return ""
}

// GetUsername extracts the authenticated username from the request context
func GetUsername(c *fiber.Ctx) string {
	if username, ok := c.Locals("username").(string); ok {
		return username
	}
	return ""
}
