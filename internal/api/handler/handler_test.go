package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"duocall/backend/internal/api/handler"
	"duocall/backend/internal/chathub"
	"duocall/backend/internal/metrics"
	"duocall/backend/internal/models"
	"duocall/backend/internal/rooms"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-admin-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, secret string) (http.Handler, *chathub.ManagerService) {
	t.Helper()
	rec := metrics.New(prometheus.NewRegistry())
	hub := chathub.NewManagerService(chathub.Options{Metrics: rec})

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	origins := []string{"https://app.example"}
	h := handler.NewHandler(hub, rec, secret, origins)
	return handler.NewRouter(h, origins), hub
}

func adminRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	tok, err := handler.GenerateAdminToken(testSecret, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	return req
}

func TestHealth(t *testing.T) {
	router, _ := newTestServer(t, testSecret)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAdminAuth(t *testing.T) {
	router, _ := newTestServer(t, testSecret)

	wrongSecret, err := handler.GenerateAdminToken("other-secret", time.Minute)
	require.NoError(t, err)
	expired, err := handler.GenerateAdminToken(testSecret, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + wrongSecret, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAdminDisabledWithoutSecret(t *testing.T) {
	router, _ := newTestServer(t, "")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/allocate-code", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	_, err := handler.GenerateAdminToken("", time.Minute)
	assert.Error(t, err)
}

func TestAllocateCode(t *testing.T) {
	router, hub := newTestServer(t, testSecret)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, adminRequest(t, http.MethodGet, "/admin/allocate-code"))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, rooms.ValidCode(body.Code), "got %q", body.Code)
	assert.Equal(t, 0, hub.Stats().UsedCodes, "pre-display code is not held")
}

func TestStatsAndExpireRoom(t *testing.T) {
	router, _ := newTestServer(t, testSecret)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, adminRequest(t, http.MethodGet, "/admin/stats"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rooms":0,"participants":0,"usedCodes":0}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, adminRequest(t, http.MethodPost, "/admin/rooms/1234/expire"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestServer(t, testSecret)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "duocall_rooms_active")
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestServer(t, testSecret)
	req := httptest.NewRequest(http.MethodOptions, "/admin/stats", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestWebSocketRoomFlow(t *testing.T) {
	router, hub := newTestServer(t, testSecret)
	srv := httptest.NewServer(router)
	defer srv.Close()

	alice := dial(t, srv)
	require.NoError(t, alice.WriteJSON(map[string]any{
		"type":    models.EventCreateRoom,
		"payload": map[string]string{"username": "Alice"},
	}))
	f := readFrame(t, alice)
	require.Equal(t, models.EventJoinedRoom, f.Type)
	var joined models.JoinedRoomPayload
	require.NoError(t, json.Unmarshal(f.Payload, &joined))
	assert.Equal(t, 1, joined.UserCount)
	require.True(t, rooms.ValidCode(joined.Code))

	bob := dial(t, srv)
	require.NoError(t, bob.WriteJSON(map[string]any{
		"type":    models.EventJoinRoom,
		"payload": map[string]string{"code": joined.Code, "username": "Bob"},
	}))
	assert.Equal(t, models.EventJoinedRoom, readFrame(t, bob).Type)
	assert.Equal(t, models.EventUserJoined, readFrame(t, alice).Type)

	require.NoError(t, bob.WriteJSON(map[string]any{
		"type":    models.EventSendMessage,
		"payload": map[string]string{"message": "hello"},
	}))
	for _, conn := range []*websocket.Conn{alice, bob} {
		f := readFrame(t, conn)
		require.Equal(t, models.EventNewMessage, f.Type)
		var msg models.NewMessagePayload
		require.NoError(t, json.Unmarshal(f.Payload, &msg))
		assert.Equal(t, "Bob", msg.Username)
		assert.Equal(t, "hello", msg.Message)
	}

	// Dropping the socket is an implicit leave.
	require.NoError(t, bob.Close())
	f = readFrame(t, alice)
	assert.Equal(t, models.EventUserLeft, f.Type)
	assert.Equal(t, 1, hub.Stats().Participants)
}

func TestWebSocketRejectsBadFrames(t *testing.T) {
	router, _ := newTestServer(t, testSecret)
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	f := readFrame(t, conn)
	assert.Equal(t, models.EventError, f.Type)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "dance"}))
	f = readFrame(t, conn)
	assert.Equal(t, models.EventError, f.Type)
	assert.JSONEq(t, `{"message":"unknown event"}`, string(f.Payload))
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	router, _ := newTestServer(t, testSecret)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
