package config

import "time"

type VerificationConfig interface {
	GetClientOrigin() string
	GetVerificationTTL() time.Duration
	GetStrictNotificationDelivery() bool
}

type Verification struct{}

var _ VerificationConfig = Verification{}

// GetClientOrigin is the web client origin verification links point at
func (Verification) GetClientOrigin() string {
	return GetEnv("CLIENT_ORIGIN", "http://localhost:3000")
}

func (Verification) GetVerificationTTL() time.Duration {
	return GetDurationEnv("VERIFICATION_TTL", 24*time.Hour)
}

// GetStrictNotificationDelivery makes email transport failures fatal to the caller
func (Verification) GetStrictNotificationDelivery() bool {
	return GetBoolEnv("STRICT_NOTIFICATION_DELIVERY", false)
}
