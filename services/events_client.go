package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Event names carried over the websocket gateway.
const (
	EventNewPost               = "new_post"
	EventPostLiked             = "post_liked"
	EventNewComment            = "new_comment"
	EventNewFriendRequest      = "new_friend_request"
	EventFriendRequestAccepted = "friend_request_accepted"
)

// Event is the envelope the ws service fans out. TargetUserID zero means
// broadcast; otherwise only the target user's connections receive it.
type Event struct {
	Name         string      `json:"name"`
	TargetUserID uint        `json:"target_user_id,omitempty"`
	Data         interface{} `json:"data"`
}

// EventsClient notifies the ws service about domain events. Delivery is
// best-effort: a failed notification is logged and dropped, never surfaced
// to the request that produced the event.
type EventsClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewEventsClient(baseURL string, timeout time.Duration, logger *zap.Logger) *EventsClient {
	return &EventsClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (ec *EventsClient) post(path string, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		ec.logger.Warn("failed to encode event", zap.String("event", event.Name), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ec.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ec.baseURL+path, bytes.NewReader(body))
	if err != nil {
		ec.logger.Warn("failed to build event request", zap.String("event", event.Name), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ec.client.Do(req)
	if err != nil {
		ec.logger.Warn("event delivery failed", zap.String("event", event.Name), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		ec.logger.Warn("event delivery rejected",
			zap.String("event", event.Name),
			zap.Int("status", resp.StatusCode))
	}
}

// NotifyPostEvent sends a post/comment/like event for broadcast.
func (ec *EventsClient) NotifyPostEvent(name string, data interface{}) {
	ec.post("/api/events/post", Event{Name: name, Data: data})
}

// NotifyFriendshipEvent sends a friendship event targeted at one user.
func (ec *EventsClient) NotifyFriendshipEvent(name string, targetUserID uint, data interface{}) {
	ec.post("/api/events/friendship", Event{Name: name, TargetUserID: targetUserID, Data: data})
}
