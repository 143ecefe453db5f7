// ABOUTME: Websocket session protocol handler for the chat core
// ABOUTME: Authenticates once, then loops decoding send commands until cancelled

package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/findry/findry/internal/auth"
)

const writeWait = 10 * time.Second

// formatErrorPayload is the fixed response for empty, unparsable or
// incomplete frames. Serialized once; transport and domain errors use
// distinct payloads on purpose.
var formatErrorPayload = mustMarshal(ErrorFrame{Error: "Invalid format"})

var internalErrorPayload = mustMarshal(ErrorFrame{Error: "Internal error"})

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// frameOutcome classifies one iteration of the receive loop. Cancellation
// is a checked condition that unconditionally exits the loop; everything
// else keeps the session open.
type frameOutcome int

const (
	frameProcessed frameOutcome = iota
	frameMalformed
	frameCancelled
)

// sendCommand is a fully decoded inbound frame.
type sendCommand struct {
	Target uuid.UUID
	Text   string
}

// wsSession adapts one websocket connection to the registry's Session
// interface. Writes are serialized through a mutex since the underlying
// connection supports only one concurrent writer.
type wsSession struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func newWSSession(conn *websocket.Conn) *wsSession {
	return &wsSession{id: uuid.NewString(), conn: conn}
}

func (s *wsSession) ID() string { return s.id }

func (s *wsSession) Send(_ context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// SocketHandler upgrades HTTP requests to chat sessions and drives the
// per-connection protocol state machine.
type SocketHandler struct {
	registry  *Registry
	service   *Service
	validator auth.Validator
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

// NewSocketHandler creates the websocket entry point. Pass nil logger for
// default.
func NewSocketHandler(registry *Registry, service *Service, validator auth.Validator, logger *slog.Logger) *SocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SocketHandler{
		registry:  registry,
		service:   service,
		validator: validator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Browser clients connect from a separate frontend origin.
				return true
			},
		},
		logger: logger.With("component", "chat-socket"),
	}
}

// HandleConnect is the HTTP handler for GET /api/chat/websocket.
func (h *SocketHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	h.run(r.Context(), conn)
}

// run drives one connection through its lifecycle: authenticate, register,
// receive loop, unregister, close.
func (h *SocketHandler) run(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	// A cancelled context must abort an in-progress read promptly.
	// Expiring the read deadline unblocks ReadMessage, which then exits
	// the loop through the cancelled outcome.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	identity, err := h.authenticate(ctx, conn)
	if err != nil {
		// Never registered; close with a client error and stop.
		h.logger.Debug("session authentication failed", "error", err)
		h.closeWith(conn, websocket.ClosePolicyViolation, "Invalid token")
		return
	}

	sess := newWSSession(conn)
	h.registry.Register(identity, sess)
	h.logger.Info("chat session opened", "identity", identity, "session_id", sess.ID())

	h.loop(ctx, identity, sess, conn)

	h.registry.Unregister(identity, sess)
	h.closeWith(conn, websocket.CloseNormalClosure, "Closing")
	h.logger.Info("chat session closed", "identity", identity, "session_id", sess.ID())
}

// authenticate reads exactly one credential frame and validates it.
func (h *SocketHandler) authenticate(ctx context.Context, conn *websocket.Conn) (uuid.UUID, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return uuid.Nil, err
	}

	var cred auth.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return uuid.Nil, err
	}
	return h.validator.Validate(ctx, cred)
}

// loop is the Open state: one frame in, one command processed, repeat.
// Frames of a single session are handled strictly one at a time.
func (h *SocketHandler) loop(ctx context.Context, identity uuid.UUID, sess *wsSession, conn *websocket.Conn) {
	for {
		cmd, outcome := h.nextCommand(conn)
		switch outcome {
		case frameCancelled:
			return
		case frameMalformed:
			// Format error goes to this session only; stay open.
			if err := sess.Send(ctx, formatErrorPayload); err != nil {
				h.logger.Debug("format error send failed", "error", err)
			}
		case frameProcessed:
			h.process(ctx, identity, sess, cmd)
		}
	}
}

// nextCommand receives and decodes one inbound frame. Read failures cover
// cooperative cancellation, client disconnect and broken transports -
// all of them end the session. Decode failures keep it alive.
func (h *SocketHandler) nextCommand(conn *websocket.Conn) (sendCommand, frameOutcome) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return sendCommand{}, frameCancelled
	}

	if len(data) == 0 {
		return sendCommand{}, frameMalformed
	}

	var frame sendFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return sendCommand{}, frameMalformed
	}
	if frame.Target == nil || frame.Message == nil {
		return sendCommand{}, frameMalformed
	}

	return sendCommand{Target: *frame.Target, Text: *frame.Message}, frameProcessed
}

// process runs one send command through the conversation service and
// routes the result. Domain failures answer the sending session only;
// success fans out to both parties. Unexpected failures are logged and
// answered with a generic error frame - they never close the session.
func (h *SocketHandler) process(ctx context.Context, sender uuid.UUID, sess *wsSession, cmd sendCommand) {
	msg, err := h.service.SendMessage(ctx, sender, cmd.Target, cmd.Text)
	switch {
	case err == nil:
		Deliver(ctx, h.registry, msg)
	case IsDomainError(err):
		payload := mustMarshal(ErrorFrame{Error: err.Error()})
		if sendErr := sess.Send(ctx, payload); sendErr != nil {
			h.logger.Debug("domain error send failed", "error", sendErr)
		}
	default:
		h.logger.Error("message processing failed", "error", err, "sender", sender)
		if sendErr := sess.Send(ctx, internalErrorPayload); sendErr != nil {
			h.logger.Debug("internal error send failed", "error", sendErr)
		}
	}
}

// closeWith sends a close control frame, best-effort.
func (h *SocketHandler) closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(writeWait)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
}
