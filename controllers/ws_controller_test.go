package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"picstream-api/auth"
	"picstream-api/services"
)

func wsServer(t *testing.T) (*httptest.Server, *services.Hub, *auth.Issuer) {
	t.Helper()

	issuer := auth.NewIssuer("ws-secret", time.Hour)
	hub := services.NewHub(nil, zap.NewNop())
	wc := NewWSController(hub, auth.NewLocalVerifier(issuer), zap.NewNop())

	r := gin.New()
	r.GET("/ws", wc.Connect)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub, issuer
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestWSConnectRequiresToken(t *testing.T) {
	srv, _, _ := wsServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSConnectRejectsBadToken(t *testing.T) {
	srv, _, _ := wsServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSConnectQueryToken(t *testing.T) {
	srv, hub, issuer := wsServer(t)

	token, err := issuer.Issue(42, "alice")
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ConnectionCount(42) == 1 },
		time.Second, 10*time.Millisecond)

	// A dispatched event reaches the connection.
	hub.Dispatch(context.Background(), services.Event{Name: services.EventNewPost, TargetUserID: 42, Data: gin.H{"id": 1}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(raw), services.EventNewPost)
}

func TestWSConnectHeaderToken(t *testing.T) {
	srv, hub, issuer := wsServer(t)

	token, err := issuer.Issue(7, "bob")
	require.NoError(t, err)

	header := http.Header{"Authorization": {"Bearer " + token}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ConnectionCount(7) == 1 },
		time.Second, 10*time.Millisecond)
}

func TestWSDisconnectUnregisters(t *testing.T) {
	srv, hub, issuer := wsServer(t)

	token, err := issuer.Issue(9, "carol")
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+token, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.ConnectionCount(9) == 1 },
		time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ConnectionCount(9) == 0 },
		2*time.Second, 10*time.Millisecond)
}
