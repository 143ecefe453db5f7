// ABOUTME: HTTP endpoints for chat - list, history, synchronous send, websocket
// ABOUTME: The POST path runs the same validate/persist/fan-out sequence as sockets

package chat

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/findry/findry/internal/auth"
)

// SendMessageRequest is the JSON request body for POST /api/chat.
type SendMessageRequest struct {
	Target  uuid.UUID `json:"target"`
	Message string    `json:"message"`
}

// ConversationResponse is one row of GET /api/chat.
type ConversationResponse struct {
	Participants [2]uuid.UUID   `json:"participants"`
	LastMessage  MessagePayload `json:"last_message"`
}

// HistoryResponse is the JSON response for GET /api/chat/{id}.
type HistoryResponse struct {
	Participants [2]uuid.UUID     `json:"participants"`
	Messages     []MessagePayload `json:"messages"`
}

// API exposes the chat endpoints.
type API struct {
	service  *Service
	registry *Registry
	sockets  *SocketHandler
	logger   *slog.Logger
}

// NewAPI creates the chat HTTP API. Pass nil logger for default.
func NewAPI(service *Service, registry *Registry, sockets *SocketHandler, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		service:  service,
		registry: registry,
		sockets:  sockets,
		logger:   logger.With("component", "chat-api"),
	}
}

// RegisterRoutes registers the chat routes on the given mux. The REST
// endpoints require the auth middleware; the websocket endpoint carries
// its credential in-band as the first frame.
func (a *API) RegisterRoutes(mux *http.ServeMux, requireAuth func(http.Handler) http.Handler) {
	mux.Handle("GET /api/chat", requireAuth(http.HandlerFunc(a.handleListConversations)))
	mux.Handle("GET /api/chat/{id}", requireAuth(http.HandlerFunc(a.handleGetConversation)))
	mux.Handle("POST /api/chat", requireAuth(http.HandlerFunc(a.handleSendMessage)))
	mux.HandleFunc("GET /api/chat/websocket", a.sockets.HandleConnect)
}

func (a *API) handleListConversations(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	conversations, err := a.service.ListConversations(r.Context(), identity)
	if err != nil {
		a.logger.Error("listing conversations failed", "error", err, "user", identity)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := lo.Map(conversations, func(c Conversation, _ int) ConversationResponse {
		return ConversationResponse{
			Participants: c.Participants,
			LastMessage:  PayloadFor(c.LastMessage),
		}
	})
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	other, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	history, err := a.service.GetConversation(r.Context(), identity, other)
	if err != nil {
		if IsDomainError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.logger.Error("loading conversation failed", "error", err, "user", identity, "other", other)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		Participants: history.Participants,
		Messages:     lo.Map(history.Messages, func(m Message, _ int) MessagePayload { return PayloadFor(m) }),
	})
}

// handleSendMessage is the synchronous send entry point for non-socket
// callers. It performs the identical validation/persist/fan-out sequence
// as the websocket path, so live sessions see HTTP-originated messages
// exactly like socket-originated ones.
func (a *API) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := a.service.SendMessage(r.Context(), identity, req.Target, req.Message)
	if err != nil {
		if IsDomainError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.logger.Error("sending message failed", "error", err, "sender", identity)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	Deliver(r.Context(), a.registry, msg)
	writeJSON(w, http.StatusOK, PayloadFor(msg))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorFrame{Error: msg})
}
