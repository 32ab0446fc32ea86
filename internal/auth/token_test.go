package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickcart/catalog-api/internal/config"
)

func testIssuer(ttl time.Duration) *Issuer {
	return NewIssuer(&config.JWTConfig{
		Secret:   "test-secret",
		TTL:      ttl,
		Issuer:   "catalog-api",
		Audience: "catalog-clients",
	})
}

func TestIssuer_IssueAndVerify(t *testing.T) {
	issuer := testIssuer(time.Hour)

	token, expiresIn, err := issuer.Issue("user-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 3600, expiresIn)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
}

func TestIssuer_AcceptedUntilExpiry(t *testing.T) {
	issuer := testIssuer(time.Hour)

	issuedAt := time.Now()
	issuer.now = func() time.Time { return issuedAt }

	token, _, err := issuer.Issue("user-1", "alice")
	require.NoError(t, err)

	// Just inside the lifetime.
	issuer.now = func() time.Time { return issuedAt.Add(time.Hour - time.Second) }
	_, err = issuer.Verify(token)
	assert.NoError(t, err)

	// At the boundary and beyond.
	issuer.now = func() time.Time { return issuedAt.Add(time.Hour + time.Second) }
	_, err = issuer.Verify(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_RejectsForeignSignature(t *testing.T) {
	issuer := testIssuer(time.Hour)
	other := NewIssuer(&config.JWTConfig{Secret: "other-secret", TTL: time.Hour})

	token, _, err := other.Issue("user-1", "alice")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_RejectsGarbage(t *testing.T) {
	issuer := testIssuer(time.Hour)

	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		_, err := issuer.Verify(tok)
		assert.Error(t, err, "token %q should not verify", tok)
	}
}
