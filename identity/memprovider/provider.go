// Package memprovider is an in-process account API: password login, bearer token
// minting and email verification over a users.AccountRepo.
package memprovider

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/lively-auth/internal/errors"
	"github.com/jrsteele09/lively-auth/token"
	"github.com/jrsteele09/lively-auth/users"
	"github.com/jrsteele09/lively-auth/verification"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Provider struct {
	accounts     users.AccountRepo
	tokens       *token.Issuer
	verifier     *verification.Issuer
	mailer       *verification.Mailer
	clientOrigin string
	nowFunc      func() time.Time
}

type Option func(*Provider)

func WithNowFunc(now func() time.Time) Option {
	return func(p *Provider) {
		p.nowFunc = now
	}
}

func New(accounts users.AccountRepo, tokens *token.Issuer, verifier *verification.Issuer, mailer *verification.Mailer, clientOrigin string, options ...Option) (*Provider, error) {
	if accounts == nil {
		return nil, errors.New("[memprovider.New] account repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[memprovider.New] token issuer is required")
	}
	if verifier == nil || mailer == nil {
		return nil, errors.New("[memprovider.New] verification issuer and mailer are required")
	}
	p := &Provider{
		accounts:     accounts,
		tokens:       tokens,
		verifier:     verifier,
		mailer:       mailer,
		clientOrigin: clientOrigin,
		nowFunc:      time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

// Authenticate checks the password of a verified account and issues a token
func (p *Provider) Authenticate(ctx context.Context, creds users.Credentials) (*users.User, error) {
	if err := creds.ValidateLogin(); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidCredentials, "%v", err)
	}

	account, err := p.accounts.GetByEmail(creds.Email)
	if apperrors.Is(err, apperrors.ErrUserNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !users.CheckPasswordHash(creds.Password, account.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !account.Verified {
		return nil, apperrors.Wrapf(apperrors.ErrUserUnverified, "%s", account.Email)
	}

	return p.withToken(&account.User)
}

// Register stores an unverified account and emails it a verification link
func (p *Provider) Register(ctx context.Context, creds users.Credentials) error {
	if err := creds.ValidateRegistration(); err != nil {
		return apperrors.Wrapf(apperrors.ErrInvalidCredentials, "%v", err)
	}

	hash, err := users.HashPassword(creds.Password)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}

	account := &users.Account{
		User: users.User{
			Username:    creds.Username,
			DisplayName: creds.DisplayName,
			Email:       creds.Email,
			DateJoined:  p.nowFunc().UTC(),
		},
		PasswordHash: hash,
	}
	if err := p.accounts.Create(account); err != nil {
		if apperrors.Is(err, apperrors.ErrUserExists) {
			return err
		}
		return errors.Wrap(err, "failed to store account")
	}

	if err := p.mailer.ConstructAndSend(ctx, &account.User, p.clientOrigin); err != nil {
		// a failed send must not leave the address taken
		if delErr := p.accounts.Delete(account.ID); delErr != nil {
			log.Err(delErr).Str("userId", account.ID).Msg("Failed to remove account after verification email failed")
		}
		return err
	}

	log.Info().Str("userId", account.ID).Str("email", account.Email).Msg("Account registered")
	return nil
}

// Refresh verifies token and issues a new one for the same account
func (p *Provider) Refresh(ctx context.Context, raw string) (*users.User, error) {
	account, err := p.accountForToken(raw)
	if err != nil {
		return nil, err
	}
	return p.withToken(&account.User)
}

// CurrentUser returns the account behind token. The token is returned unchanged.
func (p *Provider) CurrentUser(ctx context.Context, raw string) (*users.User, error) {
	account, err := p.accountForToken(raw)
	if err != nil {
		return nil, err
	}
	user := account.User.Clone()
	user.Token = raw
	return user, nil
}

// VerifyEmail redeems a verification token and marks its account verified.
// The email must match the account the token was issued for. A mismatch leaves
// the token unused.
func (p *Provider) VerifyEmail(ctx context.Context, encodedToken, email string) error {
	accountID, err := p.verifier.Lookup(ctx, encodedToken)
	if err != nil {
		return err
	}

	account, err := p.accounts.GetByID(accountID)
	if err != nil {
		return err
	}
	if !strings.EqualFold(account.Email, email) {
		return apperrors.Wrapf(apperrors.ErrTokenUnknown, "token was not issued for %s", email)
	}

	redeemed, err := p.verifier.Redeem(ctx, encodedToken)
	if err != nil {
		return err
	}
	if redeemed != accountID {
		return apperrors.Wrapf(apperrors.ErrTokenUnknown, "token was reissued for another account")
	}
	if err := p.accounts.SetVerified(accountID, true); err != nil {
		return err
	}

	log.Info().Str("userId", accountID).Msg("Email verified")
	return nil
}

// ResendVerification issues a new link, revoking the previous one. Verified accounts are left alone.
func (p *Provider) ResendVerification(ctx context.Context, email string) error {
	account, err := p.accounts.GetByEmail(email)
	if err != nil {
		return err
	}
	if account.Verified {
		log.Debug().Str("userId", account.ID).Msg("Account already verified, not resending")
		return nil
	}
	return p.mailer.ConstructAndSend(ctx, &account.User, p.clientOrigin)
}

func (p *Provider) accountForToken(raw string) (*users.Account, error) {
	claims, err := p.tokens.Verify(raw)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrAuth, "%v", err)
	}
	account, err := p.accounts.GetByID(claims.Subject)
	if apperrors.Is(err, apperrors.ErrUserNotFound) {
		return nil, apperrors.Wrapf(apperrors.ErrAuth, "token subject %s no longer exists", claims.Subject)
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (p *Provider) withToken(user *users.User) (*users.User, error) {
	raw, _, err := p.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	issued := user.Clone()
	issued.Token = raw
	return issued, nil
}
