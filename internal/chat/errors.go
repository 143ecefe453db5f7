// ABOUTME: Domain error taxonomy for the chat core
// ABOUTME: These are expected user-facing outcomes, surfaced with their text

package chat

import "errors"

// Domain errors. The error text is the human-readable description sent
// back to clients, so keep it presentable.
var (
	// ErrInvalidTarget is returned when sender and target are the same user.
	ErrInvalidTarget = errors.New("sender and target must be different")

	// ErrInvalidUser is returned when either participant cannot be resolved.
	ErrInvalidUser = errors.New("user does not exist")

	// ErrInvalidMessage is returned when the message text is empty.
	ErrInvalidMessage = errors.New("message must not be empty")
)

// IsDomainError reports whether err is one of the expected chat domain
// outcomes, as opposed to an infrastructure failure.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrInvalidTarget) ||
		errors.Is(err, ErrInvalidUser) ||
		errors.Is(err, ErrInvalidMessage)
}
