package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/lively-auth/users"
	"github.com/pkg/errors"
)

const defaultAccessTokenExpiry = 10 * time.Minute

// Issuer mints and verifies HMAC-SHA256 bearer tokens. It is the server side
// counterpart of DecodeExpiry and is used by the demo identity provider.
type Issuer struct {
	secret            []byte
	issuer            string
	accessTokenExpiry time.Duration
	nowFunc           func() time.Time
}

type IssuerOption func(*Issuer)

func WithTokenExpiry(accessTokenExpiry time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.accessTokenExpiry = accessTokenExpiry
	}
}

func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func WithIssuer(issuer string) IssuerOption {
	return func(i *Issuer) {
		i.issuer = issuer
	}
}

func NewIssuer(secret string, options ...IssuerOption) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("[NewIssuer] secret is required")
	}

	i := &Issuer{
		secret:            []byte(secret),
		accessTokenExpiry: defaultAccessTokenExpiry,
		nowFunc:           time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	if i.accessTokenExpiry <= 0 {
		i.accessTokenExpiry = defaultAccessTokenExpiry
	}
	return i, nil
}

// Issue signs a token for user and returns it with its expiry
func (i *Issuer) Issue(user *users.User) (string, time.Time, error) {
	if user == nil || user.ID == "" {
		return "", time.Time{}, errors.New("[Issuer.Issue] user id is required")
	}

	now := i.nowFunc().Truncate(time.Second)
	expiresAt := now.Add(i.accessTokenExpiry)

	claims := jwt.MapClaims{
		"sub":      user.ID,
		"email":    user.Email,
		"username": user.Username,
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"exp":      expiresAt.Unix(), // read by the client to schedule refresh
		"jti":      uuid.New().String(),
	}
	if i.issuer != "" {
		claims["iss"] = i.issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "failed to sign token with HMAC")
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and time claims of raw and returns its claims
func (i *Issuer) Verify(raw string) (*Claims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.nowFunc),
		jwt.WithExpirationRequired(),
	}
	if i.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(i.issuer))
	}

	parsed, err := jwt.ParseWithClaims(raw, jwt.MapClaims{}, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, parserOptions...)
	if err != nil {
		return nil, errors.Wrap(err, "invalid token")
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("error extracting claims from token")
	}

	claims := &Claims{}
	claims.Subject, _ = mapClaims.GetSubject()
	claims.ID, _ = mapClaims["jti"].(string)
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if claims.Subject == "" {
		return nil, errors.New("token missing sub claim")
	}
	return claims, nil
}
