// Package auth holds the token protocol shared by all services: the issuer
// that mints signed bearer tokens and the verifiers that turn a presented
// token back into an identity. The auth service is the only process that
// needs the issuer; everything else runs one of the two verifier backends.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrUnauthenticated covers every credential failure: missing token,
	// malformed token, bad signature, expiry. Callers must not be able to
	// tell these apart.
	ErrUnauthenticated = errors.New("could not validate credentials")

	// ErrServiceUnavailable means verification could not be attempted
	// because the auth service was unreachable. Maps to 503, never 401.
	ErrServiceUnavailable = errors.New("authentication service unavailable")
)

// Claims is the signed payload of an access token.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Identity is the per-request result of verification. Token carries the
// original bearer so downstream calls made on the caller's behalf can
// present it again.
type Identity struct {
	UserID   uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Token    string `json:"-"`
}

// Issuer mints HS256 tokens with a fixed, non-renewable lifetime.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// TTL returns the configured token lifetime, used to size the cookie.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a token asserting the subject is userID. The token is valid
// until the fixed expiry and never again; there is no renewal.
func (i *Issuer) Issue(userID uint, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// VerifyLocal checks signature and expiry without any network call. This is
// the fast path for processes that share the signing secret.
func (i *Issuer) VerifyLocal(tokenString string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthenticated
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrUnauthenticated
	}

	userID := claims.UserID
	if userID == 0 {
		// Tokens minted before the typed claims carried only a subject.
		parsed, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil {
			return nil, ErrUnauthenticated
		}
		userID = uint(parsed)
	}

	return &Identity{
		UserID:   userID,
		Username: claims.Username,
		Token:    tokenString,
	}, nil
}
