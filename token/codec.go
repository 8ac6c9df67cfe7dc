// Package token reads and mints the bearer tokens the Lively API hands out.
//
// DecodeExpiry and DecodeClaims read claims WITHOUT checking the signature.
// They exist only so the client can schedule a refresh before the token
// expires. No authorization or other security decision may depend on
// claims decoded here; the issuing server remains the only authority on
// whether a token is valid.
package token

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/lively-auth/internal/errors"
)

// ErrMalformedToken is returned when a token does not have three segments,
// its payload is not base64url JSON, or it carries no exp claim
var ErrMalformedToken = apperrors.ErrMalformedToken

// Claims are the unverified claims the client cares about
type Claims struct {
	Subject   string
	ID        string
	IssuedAt  time.Time // zero if absent
	ExpiresAt time.Time
}

var segmentParser = jwt.NewParser()

// DecodeExpiry returns the exp claim of raw as an absolute time
func DecodeExpiry(raw string) (time.Time, error) {
	claims, err := DecodeClaims(raw)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt, nil
}

// DecodeClaims decodes the payload segment of raw. Header and signature segments are not inspected.
func DecodeClaims(raw string) (*Claims, error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 3 {
		return nil, apperrors.Wrapf(ErrMalformedToken, "expected 3 segments, got %d", len(parts))
	}

	payload, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return nil, apperrors.Wrapf(ErrMalformedToken, "payload is not base64url (%v)", err)
	}

	mapClaims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &mapClaims); err != nil {
		return nil, apperrors.Wrapf(ErrMalformedToken, "payload is not a JSON object (%v)", err)
	}

	exp, err := mapClaims.GetExpirationTime()
	if err != nil {
		return nil, apperrors.Wrapf(ErrMalformedToken, "exp claim (%v)", err)
	}
	if exp == nil {
		return nil, apperrors.Wrapf(ErrMalformedToken, "exp claim missing")
	}

	claims := &Claims{ExpiresAt: exp.Time}
	claims.Subject, _ = mapClaims.GetSubject()
	claims.ID, _ = mapClaims["jti"].(string)
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	return claims, nil
}
