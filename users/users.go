package users

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// User is the identity the Lively API returns on login, refresh and "who am I".
// The session core treats it as a value; Token is the bearer token issued alongside it.
type User struct {
	ID          string    `json:"id,omitempty"`          // Unique identifier for the user
	Username    string    `json:"username,omitempty"`    // Unique username
	DisplayName string    `json:"displayName,omitempty"` // Name shown in the UI
	Email       string    `json:"email,omitempty"`       // User's email address
	Image       string    `json:"image,omitempty"`       // Profile image URL
	Token       string    `json:"token,omitempty"`       // Bearer token issued with this response
	DateJoined  time.Time `json:"dateJoined,omitempty"`  // Date and time when the user registered
}

// Clone returns a copy that does not share memory with u
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// Credentials are the values a user submits on the login and register forms.
// Login only needs Email and Password.
type Credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

func (c Credentials) ValidateLogin() error {
	if strings.TrimSpace(c.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if c.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

func (c Credentials) ValidateRegistration() error {
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return fmt.Errorf("email is invalid: %w", err)
	}
	if strings.TrimSpace(c.Username) == "" {
		return fmt.Errorf("username is required")
	}
	if strings.TrimSpace(c.DisplayName) == "" {
		return fmt.Errorf("display name is required")
	}
	return ValidatePasswordStrength(c.Password)
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
