// ABOUTME: User service - signup, login and lookup over an injected store
// ABOUTME: The chat core consumes GetUser as its user directory

package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/findry/findry/internal/auth"
)

// Store defines what the service needs from persistence.
type Store interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByName(ctx context.Context, name string) (User, error)
}

// Service validates and executes user operations.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a user service. Pass nil logger for default.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger.With("component", "users"),
	}
}

// Register creates a new user account.
func (s *Service) Register(ctx context.Context, name, email, password, description string) (User, error) {
	if !ValidName(name) {
		return User{}, ErrInvalidName
	}
	if !ValidEmail(email) {
		return User{}, ErrInvalidEmail
	}
	if !ValidPassword(password) {
		return User{}, ErrInvalidPassword
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("hashing password: %w", err)
	}

	user := User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		Description:  description,
		Registration: time.Now().UTC(),
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return User{}, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "name", user.Name)
	return user, nil
}

// GetUser looks up a user by identity. Returns ErrNotFound when absent.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return s.store.GetUser(ctx, id)
}

// Authenticate checks name and password and returns the matching user.
// Both unknown names and wrong passwords fail with ErrBadLogin.
func (s *Service) Authenticate(ctx context.Context, name, password string) (User, error) {
	user, err := s.store.GetUserByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrBadLogin
		}
		return User{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return User{}, ErrBadLogin
	}
	return user, nil
}
