// ABOUTME: HTTP handlers for user signup and login
// ABOUTME: Login mints the Bearer token used by the chat endpoints and sockets

package users

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// TokenIssuer mints a credential for an authenticated user.
type TokenIssuer interface {
	Issue(userID uuid.UUID, expiresIn time.Duration) (string, error)
}

// API exposes the user endpoints.
type API struct {
	service  *Service
	issuer   TokenIssuer
	tokenTTL time.Duration
	logger   *slog.Logger
}

// NewAPI creates the user HTTP API. Pass nil logger for default.
func NewAPI(service *Service, issuer TokenIssuer, tokenTTL time.Duration, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		service:  service,
		issuer:   issuer,
		tokenTTL: tokenTTL,
		logger:   logger.With("component", "users-api"),
	}
}

// RegisterRoutes registers the user routes on the given mux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/user", a.handleRegister)
	mux.HandleFunc("POST /api/user/login", a.handleLogin)
}

type registerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Description string `json:"description"`
}

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := a.service.Register(r.Context(), req.Name, req.Email, req.Password, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidName),
			errors.Is(err, ErrInvalidEmail),
			errors.Is(err, ErrInvalidPassword),
			errors.Is(err, ErrDuplicateUser):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			a.logger.Error("user registration failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := a.service.Authenticate(r.Context(), req.Name, req.Password)
	if err != nil {
		if errors.Is(err, ErrBadLogin) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		a.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := a.issuer.Issue(user.ID, a.tokenTTL)
	if err != nil {
		a.logger.Error("token issue failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
