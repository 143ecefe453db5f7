// ABOUTME: User domain type, validation rules and sentinel errors
// ABOUTME: The chat core only needs lookup by id; the rest backs signup/login

package users

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Name and credential policy.
const (
	MinNameLength = 4
	MaxNameLength = 16
)

var (
	emailPattern = regexp.MustCompile(`^[\w.\-]+@[\w\-]+(\.\w{2,3})+$`)

	// Passwords need at least one lower case letter, one upper case
	// letter and one digit, minimum six characters.
	passwordLower = regexp.MustCompile(`[a-z]`)
	passwordUpper = regexp.MustCompile(`[A-Z]`)
	passwordDigit = regexp.MustCompile(`\d`)
)

var (
	ErrNotFound        = errors.New("user not found")
	ErrDuplicateUser   = errors.New("user name or email already taken")
	ErrInvalidName     = errors.New("user name must be 4 to 16 characters")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrInvalidPassword = errors.New("password must be at least 6 characters with upper, lower and digit")
	ErrBadLogin        = errors.New("invalid name or password")
)

// User is a registered account. PasswordHash never leaves the process.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Description  string    `json:"description"`
	Registration time.Time `json:"registration"`
	PasswordHash []byte    `json:"-"`
}

// ValidName reports whether name satisfies the length policy.
func ValidName(name string) bool {
	return len(name) >= MinNameLength && len(name) <= MaxNameLength
}

// ValidEmail reports whether email looks like an address.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidPassword reports whether password satisfies the credential policy.
func ValidPassword(password string) bool {
	return len(password) >= 6 &&
		passwordLower.MatchString(password) &&
		passwordUpper.MatchString(password) &&
		passwordDigit.MatchString(password)
}
