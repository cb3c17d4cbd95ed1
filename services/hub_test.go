package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// wsPair dials a live websocket connection registered for userID and returns
// the client side for reading.
func wsPair(t *testing.T, hub *Hub, userID uint) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Register(userID, conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	alice := wsPair(t, hub, 1)
	bob := wsPair(t, hub, 2)

	hub.Dispatch(context.Background(), Event{Name: EventNewPost, Data: map[string]interface{}{"id": float64(7)}})

	for _, conn := range []*websocket.Conn{alice, bob} {
		msg := readEvent(t, conn)
		assert.Equal(t, EventNewPost, msg["event"])
	}
}

func TestHubTargetedDelivery(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	alice := wsPair(t, hub, 1)
	bob := wsPair(t, hub, 2)

	hub.Dispatch(context.Background(), Event{
		Name:         EventNewFriendRequest,
		TargetUserID: 2,
		Data:         map[string]interface{}{"requesterId": float64(1)},
	})

	msg := readEvent(t, bob)
	assert.Equal(t, EventNewFriendRequest, msg["event"])

	// Alice gets nothing.
	alice.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := alice.ReadMessage()
	assert.Error(t, err)
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())

	conn := wsPair(t, hub, 1)
	_ = conn
	require.Eventually(t, func() bool { return hub.ConnectionCount(1) == 1 },
		time.Second, 10*time.Millisecond)

	hub.mu.Lock()
	var registered *websocket.Conn
	for c := range hub.clients[1] {
		registered = c
	}
	hub.mu.Unlock()

	hub.Unregister(1, registered)
	assert.Zero(t, hub.ConnectionCount(1))
}

// With a Redis backplane, Dispatch publishes and the subscriber loop brings
// the event back to local connections.
func TestHubRedisBackplane(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	hub := NewHub(client, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.RunBackplane(ctx)

	// Give the subscription a moment to establish.
	time.Sleep(100 * time.Millisecond)

	bob := wsPair(t, hub, 2)

	hub.Dispatch(context.Background(), Event{
		Name:         EventFriendRequestAccepted,
		TargetUserID: 2,
		Data:         map[string]interface{}{"addresseeId": float64(3)},
	})

	msg := readEvent(t, bob)
	assert.Equal(t, EventFriendRequestAccepted, msg["event"])
}
