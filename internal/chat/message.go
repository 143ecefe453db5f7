// ABOUTME: Core chat domain types - messages, conversations, histories
// ABOUTME: A conversation is derived from the message set, never stored

package chat

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single chat message between two users. Messages are
// immutable once created; there is no edit or delete operation.
type Message struct {
	ID     uuid.UUID
	Sender uuid.UUID
	Target uuid.UUID
	Time   time.Time
	Text   string
}

// Counterparty returns the other participant of the message relative
// to the given user.
func (m Message) Counterparty(user uuid.UUID) uuid.UUID {
	if m.Sender == user {
		return m.Target
	}
	return m.Sender
}

// Conversation is the derived overview row for one counterparty: the
// unordered pair of participants plus their most recent message.
type Conversation struct {
	Participants [2]uuid.UUID
	LastMessage  Message
}

// History is the full ordered message exchange between two users.
type History struct {
	Participants [2]uuid.UUID
	Messages     []Message
}
