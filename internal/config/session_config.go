package config

import "time"

type SessionConfig interface {
	GetTokenSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshSkew() time.Duration
	GetRefreshTimeout() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

// GetTokenSecret is the HMAC key the demo identity API signs bearer tokens with
func (Session) GetTokenSecret() string {
	return GetEnv("TOKEN_SECRET", "")
}

func (Session) GetAccessTokenExpiry() time.Duration {
	return GetDurationEnv("ACCESS_TOKEN_EXPIRY", 10*time.Minute)
}

// GetRefreshSkew is the lead time before expiry at which the client renews its token
func (Session) GetRefreshSkew() time.Duration {
	return GetDurationEnv("REFRESH_SKEW", 60*time.Second)
}

func (Session) GetRefreshTimeout() time.Duration {
	return GetDurationEnv("REFRESH_TIMEOUT", 15*time.Second)
}
