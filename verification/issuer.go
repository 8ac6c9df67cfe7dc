// Package verification mints and redeems single-use email verification tokens.
//
// The secret itself comes from a SecretProvider, which owns uniqueness and expiry:
// at most one secret is valid per account, and it expires after a fixed window.
// This package only encodes secrets for transport and forwards redemptions.
package verification

import (
	"context"
	"encoding/base64"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/lively-auth/internal/errors"
	"github.com/pkg/errors"
)

const PurposeEmailVerify = "email-verify"

var (
	ErrTokenExpired     = apperrors.ErrTokenExpired
	ErrTokenAlreadyUsed = apperrors.ErrTokenAlreadyUsed
	ErrTokenUnknown     = apperrors.ErrTokenUnknown
)

// SecretProvider is the identity provider capability behind verification tokens.
// ConsumeVerificationSecret must report ErrTokenExpired, ErrTokenAlreadyUsed and
// ErrTokenUnknown as distinct errors. LookupVerificationSecret reports the same
// outcome without consuming the secret.
type SecretProvider interface {
	IssueVerificationSecret(ctx context.Context, accountID string) ([]byte, error)
	ConsumeVerificationSecret(ctx context.Context, secret []byte) (accountID string, err error)
	LookupVerificationSecret(ctx context.Context, secret []byte) (accountID string, err error)
}

type Token struct {
	AccountID string
	Purpose   string
	IssuedAt  time.Time
	RawSecret []byte
	Encoded   string // unpadded base64url of RawSecret
}

type Issuer struct {
	provider SecretProvider
	nowFunc  func() time.Time
}

type IssuerOption func(*Issuer)

func WithIssuerNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func NewIssuer(provider SecretProvider, options ...IssuerOption) (*Issuer, error) {
	if provider == nil {
		return nil, errors.New("[verification.NewIssuer] secret provider is required")
	}
	i := &Issuer{provider: provider, nowFunc: time.Now}
	for _, opt := range options {
		opt(i)
	}
	return i, nil
}

func (i *Issuer) Issue(ctx context.Context, accountID string) (Token, error) {
	if accountID == "" {
		return Token{}, errors.New("[Issuer.Issue] account id is required")
	}

	secret, err := i.provider.IssueVerificationSecret(ctx, accountID)
	if err != nil {
		return Token{}, apperrors.Wrapf(err, "issue verification secret for %s", accountID)
	}
	if len(secret) == 0 {
		return Token{}, errors.Errorf("[Issuer.Issue] provider returned an empty secret for %s", accountID)
	}

	return Token{
		AccountID: accountID,
		Purpose:   PurposeEmailVerify,
		IssuedAt:  i.nowFunc(),
		RawSecret: secret,
		Encoded:   EncodeSecret(secret),
	}, nil
}

// Redeem consumes the token and returns the account it was issued for
func (i *Issuer) Redeem(ctx context.Context, encoded string) (string, error) {
	secret, err := DecodeSecret(encoded)
	if err != nil {
		return "", err
	}
	accountID, err := i.provider.ConsumeVerificationSecret(ctx, secret)
	if err != nil {
		return "", err
	}
	return accountID, nil
}

// Lookup returns the account a still redeemable token was issued for, leaving it unused
func (i *Issuer) Lookup(ctx context.Context, encoded string) (string, error) {
	secret, err := DecodeSecret(encoded)
	if err != nil {
		return "", err
	}
	return i.provider.LookupVerificationSecret(ctx, secret)
}

func EncodeSecret(secret []byte) string {
	return base64.RawURLEncoding.EncodeToString(secret)
}

// DecodeSecret accepts padded or unpadded base64url. Anything else is ErrTokenUnknown.
func DecodeSecret(encoded string) ([]byte, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(encoded), "=")
	if trimmed == "" {
		return nil, apperrors.Wrapf(ErrTokenUnknown, "empty token")
	}
	secret, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, apperrors.Wrapf(ErrTokenUnknown, "token is not base64url (%v)", err)
	}
	return secret, nil
}

// BuildVerificationLink composes {origin}/user/verifyEmail?token=...&email=...
// The email is percent encoded with %20 for spaces.
func BuildVerificationLink(origin, encoded, email string) string {
	return strings.TrimRight(origin, "/") +
		"/user/verifyEmail?token=" + url.QueryEscape(encoded) +
		"&email=" + EscapeQueryValue(email)
}

// EscapeQueryValue is url.QueryEscape with spaces as %20 rather than +
func EscapeQueryValue(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
