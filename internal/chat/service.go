// ABOUTME: Conversation service - validates, persists and projects chat messages
// ABOUTME: User lookup and the message store are injected collaborators

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/findry/findry/internal/users"
)

// UserDirectory resolves identities to users. Absent identities are
// reported as users.ErrNotFound.
type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (users.User, error)
}

// MessageStore defines what the service needs from message persistence.
type MessageStore interface {
	// Append stores one immutable message.
	Append(ctx context.Context, msg Message) error
	// ListBetween returns the time-ordered message history between two
	// users, regardless of direction.
	ListBetween(ctx context.Context, a, b uuid.UUID) ([]Message, error)
	// ListLatestPerCounterparty returns the most recent message per
	// distinct conversation partner of the user.
	ListLatestPerCounterparty(ctx context.Context, user uuid.UUID) ([]Message, error)
}

// Service implements the chat operations shared by the websocket and
// HTTP paths.
type Service struct {
	store     MessageStore
	directory UserDirectory
	logger    *slog.Logger
}

// NewService creates a conversation service. Pass nil logger for default.
func NewService(store MessageStore, directory UserDirectory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		directory: directory,
		logger:    logger.With("component", "chat"),
	}
}

// SendMessage validates and persists one message from sender to target.
// The check order is part of the contract: target equality first, then
// identity resolution, then message content.
func (s *Service) SendMessage(ctx context.Context, sender, target uuid.UUID, text string) (Message, error) {
	if sender == target {
		return Message{}, ErrInvalidTarget
	}

	if err := s.resolve(ctx, sender, target); err != nil {
		return Message{}, err
	}

	if len(text) == 0 {
		return Message{}, ErrInvalidMessage
	}

	msg := Message{
		ID:     uuid.New(),
		Sender: sender,
		Target: target,
		Time:   time.Now().UTC(),
		Text:   text,
	}
	if err := s.store.Append(ctx, msg); err != nil {
		return Message{}, fmt.Errorf("storing message: %w", err)
	}

	s.logger.Info("chat message created", "sender", sender, "target", target)
	return msg, nil
}

// ListConversations returns one row per conversation partner of the user,
// carrying the newest message of each exchange.
func (s *Service) ListConversations(ctx context.Context, user uuid.UUID) ([]Conversation, error) {
	msgs, err := s.store.ListLatestPerCounterparty(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	return lo.Map(msgs, func(m Message, _ int) Conversation {
		return Conversation{
			Participants: [2]uuid.UUID{user, m.Counterparty(user)},
			LastMessage:  m,
		}
	}), nil
}

// GetConversation returns the full message history between the user and
// the other party. The order of the two identities does not matter.
func (s *Service) GetConversation(ctx context.Context, user, other uuid.UUID) (History, error) {
	if err := s.resolve(ctx, user, other); err != nil {
		return History{}, err
	}

	msgs, err := s.store.ListBetween(ctx, user, other)
	if err != nil {
		return History{}, fmt.Errorf("loading history: %w", err)
	}

	return History{
		Participants: [2]uuid.UUID{user, other},
		Messages:     msgs,
	}, nil
}

// resolve checks that both identities exist in the user directory.
func (s *Service) resolve(ctx context.Context, a, b uuid.UUID) error {
	for _, id := range []uuid.UUID{a, b} {
		if _, err := s.directory.GetUser(ctx, id); err != nil {
			if errors.Is(err, users.ErrNotFound) {
				return ErrInvalidUser
			}
			return fmt.Errorf("resolving user %s: %w", id, err)
		}
	}
	return nil
}
