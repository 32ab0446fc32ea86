package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, 300, cfg.RateLimit.PublicLimit)
	assert.Equal(t, 10*time.Minute, cfg.RateLimit.PublicWindow)
	assert.Equal(t, 100, cfg.RateLimit.WriteLimit)
	assert.Equal(t, 30*time.Minute, cfg.RateLimit.WriteWindow)
	assert.Equal(t, 10, cfg.RateLimit.LoginLimit)
	assert.Equal(t, 10*time.Minute, cfg.RateLimit.LoginWindow)
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_JWKS_ENDPOINT", "")
	t.Setenv("STORE_BACKEND", "memory")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_JWKSEndpointSatisfiesKeyRequirement(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_JWKS_ENDPOINT", "https://issuer.example.com/.well-known/jwks.json")
	t.Setenv("STORE_BACKEND", "memory")

	_, err := Load()
	assert.NoError(t, err)
}

func TestLoad_DynamoBackendRequiresTables(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_BACKEND", "dynamodb")
	t.Setenv("DYNAMODB_USERS_TABLE_NAME", "")
	t.Setenv("DYNAMODB_PRODUCTS_TABLE_NAME", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DYNAMODB_USERS_TABLE_NAME")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad port", map[string]string{"SERVER_PORT": "notaport"}},
		{"bad store backend", map[string]string{"STORE_BACKEND": "mongo"}},
		{"bad ratelimit backend", map[string]string{"RATE_LIMIT_BACKEND": "memcached"}},
		{"zero login limit", map[string]string{"RATE_LIMIT_LOGIN_LIMIT": "0"}},
		{"bad sample rate", map[string]string{"OBSERVABILITY_SAMPLE_RATE": "2.5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "test-secret")
			t.Setenv("STORE_BACKEND", "memory")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
