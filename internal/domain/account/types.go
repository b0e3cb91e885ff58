// Package account contains the domain types and logic for the storefront's
// local sign-up / sign-in flow.
package account

import (
	"errors"
	"strings"
)

// Sentinel errors surfaced to users as messages.
var (
	// ErrInvalidCredentials is returned when the email is unknown or the password does not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountExists is returned when signing up with an already registered email.
	ErrAccountExists = errors.New("an account with this email already exists")
	// ErrInvalidInput is returned when sign-up fields fail validation.
	ErrInvalidInput = errors.New("invalid sign-up details")
)

// User is the signed-in identity.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Record is a registered account. PasswordHash holds an Argon2id PHC string.
// Password is only populated for records written by the plaintext layout and
// is never written back.
type Record struct {
	Name         string `json:"name"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Password     string `json:"password,omitempty"`
}

// Registry maps normalized email to account record.
type Registry map[string]Record

// Clone returns a shallow copy of the registry.
func (r Registry) Clone() Registry {
	out := make(Registry, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// NormalizeEmail trims surrounding whitespace and lowercases email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
