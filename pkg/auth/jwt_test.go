package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-go/storefront/config"
	"github.com/storefront-go/storefront/pkg/auth"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := auth.NewIssuer(config.JWTConfig{Secret: "s3cret", TTL: time.Hour})

	token, err := issuer.Issue(7, "a@b.com", auth.RoleAdmin)
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "a@b.com", claims.Email)

	p := auth.PrincipalFromClaims(claims)
	assert.Equal(t, auth.Principal{ID: 7, Email: "a@b.com", IsAdmin: true}, p)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := auth.NewIssuer(config.JWTConfig{Secret: "one", TTL: time.Hour}).Issue(1, "x@y.z", auth.RoleUser)
	require.NoError(t, err)

	_, err = auth.NewIssuer(config.JWTConfig{Secret: "two", TTL: time.Hour}).Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer := auth.NewIssuer(config.JWTConfig{Secret: "s", TTL: -time.Minute})
	token, err := issuer.Issue(1, "x@y.z", auth.RoleUser)
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer := auth.NewIssuer(config.JWTConfig{Secret: "s", TTL: time.Hour})
	_, err := issuer.Verify("not.a.token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, auth.CheckPassword(hash, "hunter22"))
	assert.False(t, auth.CheckPassword(hash, "hunter23"))
}

func TestPrincipalContext(t *testing.T) {
	_, ok := auth.PrincipalFrom(context.Background())
	assert.False(t, ok)

	ctx := auth.WithPrincipal(context.Background(), auth.Principal{ID: 3})
	p, ok := auth.PrincipalFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, uint(3), p.ID)
}
