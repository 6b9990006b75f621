package auth

import (
	"fmt"
	"strings"

	errs "github.com/jrsteele09/go-session-auth/internal/errors"
)

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the request shape only. Whether the credentials are correct
// is the verifier's job.
func (c Credentials) Validate() error {
	email := strings.TrimSpace(c.Email)
	if email == "" {
		return fmt.Errorf("%w: email is required", errs.ErrInvalidInput)
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
		return fmt.Errorf("%w: not a valid email", errs.ErrInvalidInput)
	}
	if c.Password == "" {
		return fmt.Errorf("%w: password is required", errs.ErrInvalidInput)
	}
	return nil
}
