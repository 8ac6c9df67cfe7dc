package token_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/lively-auth/token"
	"github.com/jrsteele09/lively-auth/users"
	"github.com/stretchr/testify/require"
)

func TestIssuer(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	nowFunc := func() time.Time { return now }

	t.Run("secret required", func(t *testing.T) {
		_, err := token.NewIssuer("")
		require.Error(t, err)
	})

	t.Run("issued token decodes locally and verifies", func(t *testing.T) {
		issuer, err := token.NewIssuer("secret", token.WithNowFunc(nowFunc), token.WithTokenExpiry(10*time.Minute), token.WithIssuer("lively"))
		require.NoError(t, err)

		raw, expiresAt, err := issuer.Issue(&users.User{ID: "u1", Email: "bob@test.com"})
		require.NoError(t, err)
		require.Equal(t, now.Add(10*time.Minute), expiresAt)

		exp, err := token.DecodeExpiry(raw)
		require.NoError(t, err)
		require.True(t, exp.Equal(expiresAt))

		claims, err := issuer.Verify(raw)
		require.NoError(t, err)
		require.Equal(t, "u1", claims.Subject)
		require.NotEmpty(t, claims.ID)
	})

	t.Run("rejects other secret", func(t *testing.T) {
		a, err := token.NewIssuer("secret-a", token.WithNowFunc(nowFunc))
		require.NoError(t, err)
		b, err := token.NewIssuer("secret-b", token.WithNowFunc(nowFunc))
		require.NoError(t, err)

		raw, _, err := a.Issue(&users.User{ID: "u1"})
		require.NoError(t, err)

		_, err = b.Verify(raw)
		require.Error(t, err)
	})

	t.Run("rejects expired", func(t *testing.T) {
		current := now
		issuer, err := token.NewIssuer("secret", token.WithNowFunc(func() time.Time { return current }), token.WithTokenExpiry(time.Minute))
		require.NoError(t, err)

		raw, _, err := issuer.Issue(&users.User{ID: "u1"})
		require.NoError(t, err)

		current = now.Add(2 * time.Minute)
		_, err = issuer.Verify(raw)
		require.Error(t, err)
	})

	t.Run("user id required", func(t *testing.T) {
		issuer, err := token.NewIssuer("secret")
		require.NoError(t, err)

		_, _, err = issuer.Issue(&users.User{})
		require.Error(t, err)
	})
}
