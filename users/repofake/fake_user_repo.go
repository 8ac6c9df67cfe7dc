package fakeuserrepo

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/lively-auth/internal/errors"
	"github.com/jrsteele09/lively-auth/users"
)

var _ users.AccountRepo = (*FakeAccountRepo)(nil)

type FakeAccountRepo struct {
	accounts map[string]*users.Account
	emailIds map[string]string // lower-cased email to account id
	lock     sync.RWMutex
}

func NewFakeAccountRepo() *FakeAccountRepo {
	return &FakeAccountRepo{
		accounts: make(map[string]*users.Account),
		emailIds: make(map[string]string),
	}
}

func (ur *FakeAccountRepo) Create(account *users.Account) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, taken := ur.emailIds[strings.ToLower(account.Email)]; taken {
		return apperrors.Wrapf(apperrors.ErrUserExists, "%s", account.Email)
	}
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	stored := *account
	ur.accounts[account.ID] = &stored
	ur.emailIds[strings.ToLower(account.Email)] = account.ID
	return nil
}

func (ur *FakeAccountRepo) Delete(id string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	a, ok := ur.accounts[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	delete(ur.accounts, id)
	if ur.emailIds[strings.ToLower(a.Email)] == id {
		delete(ur.emailIds, strings.ToLower(a.Email))
	}
	return nil
}

func (ur *FakeAccountRepo) Upsert(account *users.Account) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	stored := *account
	ur.accounts[account.ID] = &stored
	ur.emailIds[strings.ToLower(account.Email)] = account.ID
	return nil
}

func (ur *FakeAccountRepo) GetByEmail(email string) (*users.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[strings.ToLower(email)]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	account := *ur.accounts[id]
	return &account, nil
}

func (ur *FakeAccountRepo) GetByID(id string) (*users.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	a, ok := ur.accounts[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	account := *a
	return &account, nil
}

func (ur *FakeAccountRepo) SetVerified(id string, verified bool) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	a, ok := ur.accounts[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	a.Verified = verified
	return nil
}
