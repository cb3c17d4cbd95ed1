package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"picstream-api/auth"
)

const identityKey = "identity"

// ExtractToken resolves the bearer token at the HTTP boundary. Precedence:
// Authorization header first, then the access_token cookie. An empty return
// means the request is unauthenticated before any verification attempt.
func ExtractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")); token != "" {
			return token
		}
	}

	if token, err := c.Cookie("access_token"); err == nil && token != "" {
		return token
	}

	return ""
}

// RequireAuth verifies the request's token and stores the resulting identity
// in the context. Outcomes: verified (handler runs), 401 with a challenge
// header, or 503 when the auth service cannot be reached. Every request
// re-verifies from scratch; no session state is kept between requests.
func RequireAuth(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrServiceUnavailable) {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Authentication service unavailable"})
				return
			}
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// CurrentIdentity returns the identity stored by RequireAuth. Handlers
// behind RequireAuth can rely on it being present.
func CurrentIdentity(c *gin.Context) *auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(*auth.Identity); ok {
			return identity
		}
	}
	return nil
}
