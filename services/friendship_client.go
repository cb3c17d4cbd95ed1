package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"picstream-api/auth"
)

// FriendshipClient queries the friendship service's check endpoint. It
// implements visibility.Oracle for the image service.
type FriendshipClient struct {
	baseURL string
	client  *http.Client
}

func NewFriendshipClient(baseURL string, timeout time.Duration) *FriendshipClient {
	return &FriendshipClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// AreFriends reports whether the viewer has an accepted relationship with
// friendID. A non-200 response means "not friends"; a transport failure is
// returned as an error so the gate can log it before denying.
func (fc *FriendshipClient) AreFriends(ctx context.Context, viewer *auth.Identity, friendID uint) (bool, error) {
	url := fmt.Sprintf("%s/api/friendships/check?user_id=%d&friend_id=%d", fc.baseURL, viewer.UserID, friendID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("building friendship check request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+viewer.Token)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: viewer.Token})

	resp, err := fc.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("friendship check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}

	var body struct {
		AreFriends bool `json:"are_friends"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decoding friendship check response: %w", err)
	}
	return body.AreFriends, nil
}
