package entities

import (
	"strings"
	"time"

	apperrors "github.com/rudzz/marketplace/pkg/errors"
)

// MinPasswordLength is the shortest plaintext credential accepted at registration
const MinPasswordLength = 8

// minPhoneDigits is the number of digits a phone number must carry after stripping
const minPhoneDigits = 10

// Role is the closed set of account roles
type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// ParseRole maps a string to a Role
func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleCustomer:
		return RoleCustomer, true
	case RoleProvider:
		return RoleProvider, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// User represents an account in the marketplace
type User struct {
	ID           int64      `json:"id" db:"id"`
	Email        *string    `json:"email" db:"email"`
	Phone        *string    `json:"phone" db:"phone"`
	PasswordHash string     `json:"-" db:"password_hash"`
	FirstName    string     `json:"first_name" db:"first_name"`
	LastName     string     `json:"last_name" db:"last_name"`
	Role         Role       `json:"role" db:"role"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty" db:"last_login"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// FullName returns the display name of the user
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeEmail lowercases and trims an email address and checks its shape
func NormalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" || !strings.Contains(normalized, "@") {
		return "", apperrors.NewValidationError("invalid email address")
	}
	return normalized, nil
}

// NormalizePhone strips everything but ASCII digits and requires at least ten
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			digits++
		}
	}
	if digits < minPhoneDigits {
		return "", apperrors.NewValidationError("phone number must contain at least 10 digits")
	}
	return b.String(), nil
}

// ValidatePassword checks the plaintext credential before it is hashed
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperrors.NewValidationError("password must be at least 8 characters")
	}
	return nil
}
