package fakeuserrepo_test

import (
	"testing"

	apperrors "github.com/jrsteele09/lively-auth/internal/errors"
	"github.com/jrsteele09/lively-auth/users"
	fakeuserrepo "github.com/jrsteele09/lively-auth/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestCreateAndDelete(t *testing.T) {
	repo := fakeuserrepo.NewFakeAccountRepo()

	first := &users.Account{User: users.User{Email: "bob@test.com"}}
	require.NoError(t, repo.Create(first))
	require.NotEmpty(t, first.ID)

	err := repo.Create(&users.Account{User: users.User{Email: "BOB@test.com"}})
	require.ErrorIs(t, err, apperrors.ErrUserExists)

	require.NoError(t, repo.Delete(first.ID))
	_, err = repo.GetByEmail("bob@test.com")
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
	require.ErrorIs(t, repo.Delete(first.ID), apperrors.ErrUserNotFound)

	require.NoError(t, repo.Create(&users.Account{User: users.User{Email: "bob@test.com"}}))
}
