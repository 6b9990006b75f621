package users

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID           string    `json:"id,omitempty"`          // Unique identifier for the user
	Email        string    `json:"email,omitempty"`       // User's email address, stored lower-cased
	Name         string    `json:"name,omitempty"`        // Display name
	PasswordHash string    `json:"-"`                     // Hashed version of the user's password - never serialize
	DateJoined   time.Time `json:"date_joined,omitempty"` // Date and time when the user registered
	Blocked      bool      `json:"blocked,omitempty"`     // Blocked, has the user been blocked from logging in
}

// Identity is the immutable subset of a user embedded in access tokens. It
// never carries secrets.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Identity returns the token-safe snapshot of u.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, Name: u.Name}
}

// NormalizeEmail trims and lower-cases an email for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
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

// HashPassword hashes password with the given bcrypt cost; out-of-range costs
// fall back to bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
