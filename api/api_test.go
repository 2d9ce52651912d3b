package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantrail/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "api.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	s := NewServer(st, "test-secret")
	s.SetCredentials("admin", hash)
	return s, st
}

func doRequest(s *Server, method, path, body, bearer string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	s.Router().ServeHTTP(w, req)
	return w
}

func loginAndGetToken(t *testing.T, s *Server) string {
	t.Helper()
	w := doRequest(s, http.MethodPost, "/login", `{"username":"admin","password":"correct horse battery staple"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealthzIsUnauthenticated(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s, http.MethodPost, "/login", `{"username":"admin","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginIssuesUsableToken(t *testing.T) {
	s, _ := newTestServer(t)
	token := loginAndGetToken(t, s)

	w := doRequest(s, http.MethodGet, "/runs", "", token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRunsRequiresBearerToken(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/runs", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRunsRejectsMalformedToken(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/runs", "", "not-a-real-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleGetRunNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	token := loginAndGetToken(t, s)

	w := doRequest(s, http.MethodGet, "/runs/nonexistent", "", token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleListRunsAndGetRun(t *testing.T) {
	s, st := newTestServer(t)
	token := loginAndGetToken(t, s)

	require.NoError(t, st.SaveRun(store.RunRecord{
		ID:           "run-api-1",
		Strategy:     "buyAndHold",
		StartedAt:    time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		FinishedAt:   time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		StartingCash: 100000,
	}))

	w := doRequest(s, http.MethodGet, "/runs", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "run-api-1")

	w = doRequest(s, http.MethodGet, "/runs/run-api-1", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "buyAndHold")
}

func TestHandleGetEquityCurveAndTransactionsEmptyForUnknownRun(t *testing.T) {
	s, _ := newTestServer(t)
	token := loginAndGetToken(t, s)

	w := doRequest(s, http.MethodGet, "/runs/nonexistent/equity", "", token)
	assert.Equal(t, http.StatusOK, w.Code, "an unknown run yields an empty points list, not an error")
	assert.Contains(t, w.Body.String(), `"points":null`)

	w = doRequest(s, http.MethodGet, "/runs/nonexistent/transactions", "", token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPublishLiveStateDoesNotBlockWithoutClients(t *testing.T) {
	s, _ := newTestServer(t)
	assert.NotPanics(t, func() {
		s.PublishLiveState("run-1", time.Now(), 101000, 1.2)
	})
}

func TestWSHubRegisterBroadcastUnregister(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()

	client := &WSClient{hub: hub, send: make(chan WSMessage, 4)}
	hub.Register(client)

	// Give the hub goroutine a turn to process the register before asserting.
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, time.Millisecond)

	hub.Broadcast(WSMessage{Type: "live_state", Data: map[string]interface{}{"value": 100.0}})
	select {
	case msg := <-client.send:
		assert.Equal(t, "live_state", msg.Type)
	case <-time.After(time.Second):
		t.Fatal("expected a broadcast message")
	}

	hub.Unregister(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, time.Millisecond)
}

func TestWSHubBroadcastNeverBlocksOnFullQueue(t *testing.T) {
	hub := NewWSHub()
	// Do not start Run: the broadcast channel itself has a fixed buffer, and
	// Broadcast must drop rather than block once it fills.
	for i := 0; i < 300; i++ {
		hub.Broadcast(WSMessage{Type: "tick"})
	}
}
