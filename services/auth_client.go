package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PeerUser is the subset of the auth service's user profile that peer
// services care about when enriching their own rows.
type PeerUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AuthClient fetches user profiles from the auth service on behalf of an
// authenticated caller. Lookups are best-effort enrichment: callers treat a
// failure as "username unknown", never as a request failure.
type AuthClient struct {
	baseURL string
	client  *http.Client
}

func NewAuthClient(baseURL string, timeout time.Duration) *AuthClient {
	return &AuthClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// GetUser looks up a user by id, presenting the caller's token.
func (ac *AuthClient) GetUser(ctx context.Context, userID uint, token string) (*PeerUser, error) {
	url := fmt.Sprintf("%s/api/users/%d", ac.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building user lookup request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})

	resp, err := ac.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user lookup returned status %d", resp.StatusCode)
	}

	var user PeerUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decoding user lookup response: %w", err)
	}
	return &user, nil
}
