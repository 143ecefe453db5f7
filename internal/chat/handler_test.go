// ABOUTME: Tests for the chat HTTP endpoints
// ABOUTME: Auth enforcement, projections and the synchronous send path

package chat

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findry/findry/internal/auth"
)

type apiFixture struct {
	server   *httptest.Server
	registry *Registry
	store    *mockMessageStore
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	registry := NewRegistry(nil)
	store := &mockMessageStore{}
	service := NewService(store, newMockDirectory(userA, userB, userC), nil)
	validator := &stubValidator{tokens: map[string]uuid.UUID{
		"token-a": userA,
		"token-b": userB,
	}}
	sockets := NewSocketHandler(registry, service, validator, nil)
	api := NewAPI(service, registry, sockets, nil)

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, auth.Middleware(validator))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &apiFixture{server: server, registry: registry, store: store}
}

func (f *apiFixture) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, f.server.URL+path, buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestAPI_RequiresBearerToken(t *testing.T) {
	f := newAPIFixture(t)

	for _, tc := range []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"unknown", "nope"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			resp := f.request(t, http.MethodGet, "/api/chat", tc.token, nil)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestAPI_ListConversations(t *testing.T) {
	f := newAPIFixture(t)
	f.store.latest = []Message{
		msg(userB, userA, baseTime.Add(2*time.Minute), "latest with b"),
		msg(userA, userC, baseTime.Add(time.Minute), "latest with c"),
	}

	resp := f.request(t, http.MethodGet, "/api/chat", "token-a", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rows := decodeBody[[]ConversationResponse](t, resp)
	require.Len(t, rows, 2)

	// The requesting user always occupies the first participant slot.
	assert.Equal(t, [2]uuid.UUID{userA, userB}, rows[0].Participants)
	assert.Equal(t, "latest with b", rows[0].LastMessage.Message)
	assert.Equal(t, [2]uuid.UUID{userA, userC}, rows[1].Participants)
	assert.Equal(t, "latest with c", rows[1].LastMessage.Message)
}

func TestAPI_GetConversation(t *testing.T) {
	f := newAPIFixture(t)
	f.store.between = []Message{
		msg(userA, userB, baseTime, "first"),
		msg(userB, userA, baseTime.Add(time.Minute), "second"),
	}

	resp := f.request(t, http.MethodGet, "/api/chat/"+userB.String(), "token-a", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	history := decodeBody[HistoryResponse](t, resp)
	assert.Equal(t, [2]uuid.UUID{userA, userB}, history.Participants)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "first", history.Messages[0].Message)
	assert.Equal(t, "second", history.Messages[1].Message)
}

func TestAPI_GetConversation_UnknownUser(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.request(t, http.MethodGet, "/api/chat/"+uuid.NewString(), "token-a", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody[ErrorFrame](t, resp)
	assert.Equal(t, ErrInvalidUser.Error(), body.Error)
}

func TestAPI_GetConversation_MalformedID(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.request(t, http.MethodGet, "/api/chat/not-a-uuid", "token-a", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_SendMessage(t *testing.T) {
	f := newAPIFixture(t)

	// A live socket session for the target sees HTTP-originated sends.
	targetSession := newFakeSession()
	f.registry.Register(userB, targetSession)

	resp := f.request(t, http.MethodPost, "/api/chat", "token-a", SendMessageRequest{
		Target:  userB,
		Message: "over http",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeBody[MessagePayload](t, resp)
	assert.Equal(t, userA, payload.Sender)
	assert.Equal(t, userB, payload.Target)
	assert.Equal(t, "over http", payload.Message)

	require.Len(t, f.store.appended, 1)
	assert.Equal(t, "over http", f.store.appended[0].Text)
	assert.Equal(t, 1, targetSession.received())
}

func TestAPI_SendMessage_DomainErrors(t *testing.T) {
	f := newAPIFixture(t)

	for _, tc := range []struct {
		name string
		req  SendMessageRequest
		want error
	}{
		{"self target", SendMessageRequest{Target: userA, Message: "hi"}, ErrInvalidTarget},
		{"unknown target", SendMessageRequest{Target: uuid.New(), Message: "hi"}, ErrInvalidUser},
		{"empty message", SendMessageRequest{Target: userB, Message: ""}, ErrInvalidMessage},
	} {
		t.Run(tc.name, func(t *testing.T) {
			resp := f.request(t, http.MethodPost, "/api/chat", "token-a", tc.req)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			body := decodeBody[ErrorFrame](t, resp)
			assert.Equal(t, tc.want.Error(), body.Error)
		})
	}

	assert.Empty(t, f.store.appended)
}

func TestAPI_SendMessage_BadBody(t *testing.T) {
	f := newAPIFixture(t)

	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/api/chat", bytes.NewReader([]byte("{{")))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer token-a")

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
