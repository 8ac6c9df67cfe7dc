package users_test

import (
	"testing"

	"github.com/jrsteele09/lively-auth/users"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"too short", "Ab1", "at least 8 characters"},
		{"no upper", "abcdefg1", "uppercase"},
		{"no lower", "ABCDEFG1", "lowercase"},
		{"no number", "Abcdefgh", "number"},
		{"valid", "Pa$$w0rdOk", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := users.ValidatePasswordStrength(tt.password)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestCredentials(t *testing.T) {
	t.Run("login requires email and password", func(t *testing.T) {
		require.Error(t, users.Credentials{Password: "x"}.ValidateLogin())
		require.Error(t, users.Credentials{Email: "bob@test.com"}.ValidateLogin())
		require.NoError(t, users.Credentials{Email: "bob@test.com", Password: "x"}.ValidateLogin())
	})

	t.Run("registration", func(t *testing.T) {
		valid := users.Credentials{Email: "bob@test.com", Password: "Pa$$w0rd", Username: "bob", DisplayName: "Bob"}
		require.NoError(t, valid.ValidateRegistration())

		badEmail := valid
		badEmail.Email = "not-an-email"
		require.Error(t, badEmail.ValidateRegistration())

		noUsername := valid
		noUsername.Username = " "
		require.Error(t, noUsername.ValidateRegistration())
	})
}

func TestPasswordHash(t *testing.T) {
	hash, err := users.HashPassword("Pa$$w0rd")
	require.NoError(t, err)

	require.True(t, users.CheckPasswordHash("Pa$$w0rd", hash))
	require.False(t, users.CheckPasswordHash("wrong", hash))
}

func TestClone(t *testing.T) {
	var nilUser *users.User
	require.Nil(t, nilUser.Clone())

	u := &users.User{ID: "1", DisplayName: "Bob"}
	c := u.Clone()
	c.DisplayName = "Alice"
	require.Equal(t, "Bob", u.DisplayName)
}
