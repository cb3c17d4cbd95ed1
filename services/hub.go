package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const backplaneChannel = "picstream:events"

// Hub tracks websocket connections by user and fans events out to them.
// When a Redis backplane is configured, events are published to a channel
// instead of delivered directly, so every ws node (including this one) fans
// out the same stream; room management beyond per-user targeting is out of
// scope here.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*websocket.Conn]bool

	redis  *redis.Client
	logger *zap.Logger
}

func NewHub(redisClient *redis.Client, logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[uint]map[*websocket.Conn]bool),
		redis:   redisClient,
		logger:  logger,
	}
}

// Register adds a verified connection for a user.
func (h *Hub) Register(userID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*websocket.Conn]bool)
	}
	h.clients[userID][conn] = true
}

// Unregister drops a connection; the caller closes it.
func (h *Hub) Unregister(userID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns := h.clients[userID]; conns != nil {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, userID)
		}
	}
}

// ConnectionCount reports connections for one user.
func (h *Hub) ConnectionCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Dispatch routes an event: through the backplane when configured, locally
// otherwise.
func (h *Hub) Dispatch(ctx context.Context, event Event) {
	if h.redis == nil {
		h.deliver(event)
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("failed to encode event for backplane", zap.Error(err))
		return
	}
	if err := h.redis.Publish(ctx, backplaneChannel, payload).Err(); err != nil {
		h.logger.Warn("backplane publish failed, delivering locally", zap.Error(err))
		h.deliver(event)
	}
}

// RunBackplane subscribes to the Redis channel and delivers incoming events
// to local connections. Blocks until the context is cancelled.
func (h *Hub) RunBackplane(ctx context.Context) {
	if h.redis == nil {
		return
	}

	sub := h.redis.Subscribe(ctx, backplaneChannel)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.logger.Warn("dropping malformed backplane event", zap.Error(err))
				continue
			}
			h.deliver(event)
		}
	}
}

func (h *Hub) deliver(event Event) {
	message, err := json.Marshal(map[string]interface{}{
		"event": event.Name,
		"data":  event.Data,
	})
	if err != nil {
		h.logger.Warn("failed to encode outbound event", zap.Error(err))
		return
	}

	// Full lock: gorilla connections allow a single concurrent writer.
	h.mu.Lock()
	defer h.mu.Unlock()

	if event.TargetUserID != 0 {
		h.writeAll(h.clients[event.TargetUserID], message)
		return
	}
	for _, conns := range h.clients {
		h.writeAll(conns, message)
	}
}

func (h *Hub) writeAll(conns map[*websocket.Conn]bool, message []byte) {
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Debug("write to websocket client failed", zap.Error(err))
		}
	}
}
