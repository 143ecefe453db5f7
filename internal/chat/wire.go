// ABOUTME: Wire-level frame types shared by the websocket and HTTP paths
// ABOUTME: JSON payloads; inbound field names are matched case-insensitively

package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// sendFrame is the repeatable client->server frame carrying a send-message
// command. Pointers distinguish absent fields from zero values so that a
// frame with missing fields is rejected as a format error rather than
// passed into the domain.
type sendFrame struct {
	Target  *uuid.UUID `json:"target"`
	Message *string    `json:"message"`
}

// ErrorFrame is the server->client error payload, used for both the fixed
// format error and domain error descriptions.
type ErrorFrame struct {
	Error string `json:"error"`
}

// MessagePayload is the server->client representation of a stored message,
// sent to both parties on a successful send.
type MessagePayload struct {
	Time    time.Time `json:"time"`
	Sender  uuid.UUID `json:"sender"`
	Target  uuid.UUID `json:"target"`
	Message string    `json:"message"`
}

// PayloadFor converts a stored message into its wire form.
func PayloadFor(m Message) MessagePayload {
	return MessagePayload{
		Time:    m.Time,
		Sender:  m.Sender,
		Target:  m.Target,
		Message: m.Text,
	}
}

// Deliver fans a stored message out to the live sessions of both
// participants. The two fan-outs are independent; partial delivery to
// only one side is acceptable and not retried. Both the websocket loop
// and the synchronous HTTP path go through here so socket and non-socket
// sends behave identically.
func Deliver(ctx context.Context, registry *Registry, msg Message) {
	payload := PayloadFor(msg)
	registry.SendTo(ctx, msg.Target, payload)
	registry.SendTo(ctx, msg.Sender, payload)
}
