// ABOUTME: Tests for the user service
// ABOUTME: Signup validation, password handling and login

package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findry/findry/internal/auth"
)

// memStore is an in-memory Store for service tests.
type memStore struct {
	byID   map[uuid.UUID]User
	byName map[string]User
}

func newMemStore() *memStore {
	return &memStore{
		byID:   make(map[uuid.UUID]User),
		byName: make(map[string]User),
	}
}

func (m *memStore) CreateUser(_ context.Context, user User) error {
	if _, ok := m.byName[user.Name]; ok {
		return ErrDuplicateUser
	}
	m.byID[user.ID] = user
	m.byName[user.Name] = user
	return nil
}

func (m *memStore) GetUser(_ context.Context, id uuid.UUID) (User, error) {
	user, ok := m.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (m *memStore) GetUserByName(_ context.Context, name string) (User, error) {
	user, ok := m.byName[name]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func TestService_Register(t *testing.T) {
	svc := NewService(newMemStore(), nil)

	user, err := svc.Register(t.Context(), "alice", "alice@example.com", "Passw0rd", "likes hiking")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "alice", user.Name)
	assert.Equal(t, "likes hiking", user.Description)
	assert.False(t, user.Registration.IsZero())

	// The stored secret is a hash, never the password itself.
	assert.NotEqual(t, []byte("Passw0rd"), user.PasswordHash)
	assert.True(t, auth.CheckPassword(user.PasswordHash, "Passw0rd"))
}

func TestService_Register_Validation(t *testing.T) {
	svc := NewService(newMemStore(), nil)

	tests := []struct {
		name     string
		userName string
		email    string
		password string
		want     error
	}{
		{"name too short", "abc", "a@b.com", "Passw0rd", ErrInvalidName},
		{"name too long", "this name is far too long", "a@b.com", "Passw0rd", ErrInvalidName},
		{"bad email", "alice", "not-an-email", "Passw0rd", ErrInvalidEmail},
		{"password too short", "alice", "a@b.com", "Pw0", ErrInvalidPassword},
		{"password no upper", "alice", "a@b.com", "passw0rd", ErrInvalidPassword},
		{"password no lower", "alice", "a@b.com", "PASSW0RD", ErrInvalidPassword},
		{"password no digit", "alice", "a@b.com", "Password", ErrInvalidPassword},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(t.Context(), tc.userName, tc.email, tc.password, "")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestService_Register_DuplicateName(t *testing.T) {
	svc := NewService(newMemStore(), nil)

	_, err := svc.Register(t.Context(), "alice", "alice@example.com", "Passw0rd", "")
	require.NoError(t, err)

	_, err = svc.Register(t.Context(), "alice", "other@example.com", "Passw0rd", "")
	assert.ErrorIs(t, err, ErrDuplicateUser)
}

func TestService_Authenticate(t *testing.T) {
	svc := NewService(newMemStore(), nil)

	registered, err := svc.Register(t.Context(), "alice", "alice@example.com", "Passw0rd", "")
	require.NoError(t, err)

	user, err := svc.Authenticate(t.Context(), "alice", "Passw0rd")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
}

func TestService_Authenticate_BadLogin(t *testing.T) {
	svc := NewService(newMemStore(), nil)

	_, err := svc.Register(t.Context(), "alice", "alice@example.com", "Passw0rd", "")
	require.NoError(t, err)

	// Unknown names and wrong passwords are indistinguishable.
	_, err = svc.Authenticate(t.Context(), "mallory", "Passw0rd")
	assert.ErrorIs(t, err, ErrBadLogin)

	_, err = svc.Authenticate(t.Context(), "alice", "wrongPassw0rd")
	assert.ErrorIs(t, err, ErrBadLogin)
}

func TestService_GetUser(t *testing.T) {
	svc := NewService(newMemStore(), nil)

	registered, err := svc.Register(t.Context(), "alice", "alice@example.com", "Passw0rd", "")
	require.NoError(t, err)

	user, err := svc.GetUser(t.Context(), registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Name)

	_, err = svc.GetUser(t.Context(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
