// ABOUTME: Tests for the user HTTP endpoints
// ABOUTME: Signup and the login flow that mints Bearer tokens

package users

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubIssuer returns a fixed token or error.
type stubIssuer struct {
	token string
	err   error
}

func (i *stubIssuer) Issue(_ uuid.UUID, _ time.Duration) (string, error) {
	return i.token, i.err
}

func newUserAPI(t *testing.T, issuer TokenIssuer) *httptest.Server {
	t.Helper()

	api := NewAPI(NewService(newMemStore(), nil), issuer, time.Hour, nil)
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandleRegister(t *testing.T) {
	server := newUserAPI(t, &stubIssuer{token: "tok"})

	resp := postJSON(t, server.URL+"/api/user", registerRequest{
		Name:     "alice",
		Email:    "alice@example.com",
		Password: "Passw0rd",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var user User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&user))
	assert.Equal(t, "alice", user.Name)
	assert.NotEqual(t, uuid.Nil, user.ID)

	// The password hash is never serialized.
	assert.Empty(t, user.PasswordHash)
}

func TestHandleRegister_ValidationErrors(t *testing.T) {
	server := newUserAPI(t, &stubIssuer{token: "tok"})

	resp := postJSON(t, server.URL+"/api/user", registerRequest{
		Name:     "ab",
		Email:    "alice@example.com",
		Password: "Passw0rd",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, ErrInvalidName.Error(), body["error"])
}

func TestHandleRegister_BadBody(t *testing.T) {
	server := newUserAPI(t, &stubIssuer{token: "tok"})

	resp, err := http.Post(server.URL+"/api/user", "application/json", bytes.NewReader([]byte("{{")))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleLogin(t *testing.T) {
	server := newUserAPI(t, &stubIssuer{token: "minted-token"})

	resp := postJSON(t, server.URL+"/api/user", registerRequest{
		Name:     "alice",
		Email:    "alice@example.com",
		Password: "Passw0rd",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, server.URL+"/api/user/login", loginRequest{
		Name:     "alice",
		Password: "Passw0rd",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body loginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "minted-token", body.Token)
}

func TestHandleLogin_BadCredentials(t *testing.T) {
	server := newUserAPI(t, &stubIssuer{token: "tok"})

	resp := postJSON(t, server.URL+"/api/user/login", loginRequest{
		Name:     "nobody",
		Password: "Passw0rd",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleLogin_IssuerFailure(t *testing.T) {
	server := newUserAPI(t, &stubIssuer{err: errors.New("keys unavailable")})

	resp := postJSON(t, server.URL+"/api/user", registerRequest{
		Name:     "alice",
		Email:    "alice@example.com",
		Password: "Passw0rd",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, server.URL+"/api/user/login", loginRequest{
		Name:     "alice",
		Password: "Passw0rd",
	})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
