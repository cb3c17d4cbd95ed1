package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Verifier resolves a presented token into an identity. Two backends exist:
// LocalVerifier for processes that hold the signing secret, RemoteVerifier
// for the rest. Which one a service runs is a config decision, not code.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// LocalVerifier validates signature and expiry in-process.
type LocalVerifier struct {
	issuer *Issuer
}

func NewLocalVerifier(issuer *Issuer) *LocalVerifier {
	return &LocalVerifier{issuer: issuer}
}

func (v *LocalVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	return v.issuer.VerifyLocal(token)
}

// RemoteVerifier delegates to the auth service's verify-token endpoint. The
// token travels both as an Authorization header and as the access_token
// cookie; some callers in the deployment only forward one of the two.
type RemoteVerifier struct {
	authServiceURL string
	client         *http.Client
}

func NewRemoteVerifier(authServiceURL string, timeout time.Duration) *RemoteVerifier {
	return &RemoteVerifier{
		authServiceURL: authServiceURL,
		client:         &http.Client{Timeout: timeout},
	}
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.authServiceURL+"/api/auth/verify-token", nil)
	if err != nil {
		return nil, fmt.Errorf("building verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})

	resp, err := v.client.Do(req)
	if err != nil {
		// Timeout and connection failure are infrastructure problems, not
		// credential problems; callers return 503 for these.
		return nil, ErrServiceUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ErrUnauthenticated
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, ErrUnauthenticated
	}
	identity.Token = token

	return &identity, nil
}
