package server

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/lively-auth/internal/errors"
	"github.com/jrsteele09/lively-auth/users"
	"github.com/rs/zerolog/log"
)

const demoUsername = "demo"

// SeedDemoAccount makes sure a verified account exists for email so the client can log in
// without going through email verification. If password is empty one is generated and
// returned; it is only returned when the account is created.
func SeedDemoAccount(accounts users.AccountRepo, email, password string) (generatedPassword string, err error) {
	if strings.TrimSpace(email) == "" {
		return "", nil
	}

	existing, err := accounts.GetByEmail(email)
	if err == nil {
		if !existing.Verified {
			return "", accounts.SetVerified(existing.ID, true)
		}
		return "", nil
	}
	if !apperrors.Is(err, apperrors.ErrUserNotFound) {
		return "", fmt.Errorf("[SeedDemoAccount] lookup %s: %w", email, err)
	}

	if password == "" {
		if password, err = generateSecurePassword(); err != nil {
			return "", err
		}
		generatedPassword = password
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("[SeedDemoAccount] hash password: %w", err)
	}

	account := &users.Account{
		User: users.User{
			Username:    demoUsername,
			DisplayName: "Demo User",
			Email:       email,
			DateJoined:  time.Now().UTC(),
		},
		PasswordHash: hash,
		Verified:     true,
	}
	if err := accounts.Upsert(account); err != nil {
		return "", fmt.Errorf("[SeedDemoAccount] store account: %w", err)
	}

	log.Info().Str("userId", account.ID).Str("email", email).Msg("Seeded demo account")
	return generatedPassword, nil
}

// generateSecurePassword returns a random password that passes users.ValidatePasswordStrength
func generateSecurePassword() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return "Lv1" + base64.RawURLEncoding.EncodeToString(b), nil
}
