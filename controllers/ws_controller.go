package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"picstream-api/auth"
	"picstream-api/middleware"
	"picstream-api/services"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 45 * time.Second
)

type WSController struct {
	hub      *services.Hub
	verifier auth.Verifier
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWSController(hub *services.Hub, verifier auth.Verifier, logger *zap.Logger) *WSController {
	return &WSController{
		hub:      hub,
		verifier: verifier,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browsers cannot set custom headers on websocket handshakes, so
			// cross-origin clients are expected; the token check is the gate.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Connect authenticates the handshake and upgrades it. Browser websocket
// clients cannot send an Authorization header, so the token is also accepted
// as a ?token= query parameter alongside the usual header and cookie.
func (wc *WSController) Connect(c *gin.Context) {
	token := middleware.ExtractToken(c)
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	identity, err := wc.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrServiceUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Authentication service unavailable"})
			return
		}
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
		return
	}

	conn, err := wc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wc.logger.Warn("websocket upgrade failed",
			zap.Uint("user_id", identity.UserID), zap.Error(err))
		return
	}

	wc.hub.Register(identity.UserID, conn)
	wc.logger.Info("websocket connected",
		zap.Uint("user_id", identity.UserID),
		zap.String("username", identity.Username))

	go wc.readLoop(identity, conn)
}

// readLoop keeps the connection alive and detects disconnects. Clients only
// receive events; anything they send is discarded.
func (wc *WSController) readLoop(identity *auth.Identity, conn *websocket.Conn) {
	defer func() {
		wc.hub.Unregister(identity.UserID, conn)
		conn.Close()
		wc.logger.Info("websocket disconnected", zap.Uint("user_id", identity.UserID))
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-ping.C:
			// WriteControl is safe alongside the hub goroutine's WriteMessage.
			deadline := time.Now().Add(wsWriteWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
