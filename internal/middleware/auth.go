package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/logger"
	"github.com/noah-isme/lms-api/pkg/response"
)

// ContextUserKey is the gin context key storing verified JWT claims.
const ContextUserKey = "currentUser"

// Identity headers a client might try to forge. Only verified claims count.
var spoofableHeaders = []string{"X-User-Id", "X-User-Role"}

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	Verify(token string, kind models.TokenKind) (*models.JWTClaims, error)
}

// Authenticate requires a valid bearer access token and stores its claims
// under ContextUserKey. The chain is aborted before any handler on failure.
func Authenticate(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		stripIdentityHeaders(c)

		raw, ok := bearerToken(c)
		if !ok {
			response.Abort(c, appErrors.ErrAuthenticationRequired)
			return
		}

		claims, err := tokens.Verify(raw, models.TokenKindAccess)
		if err != nil {
			response.Abort(c, appErrors.ErrInvalidToken)
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuthenticate attaches claims when a valid token is present but
// never blocks the request.
func OptionalAuthenticate(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		stripIdentityHeaders(c)

		if raw, ok := bearerToken(c); ok {
			if claims, err := tokens.Verify(raw, models.TokenKindAccess); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

// Claims returns the verified claims stored by Authenticate.
func Claims(c *gin.Context) (*models.JWTClaims, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok && claims != nil
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func setClaims(c *gin.Context, claims *models.JWTClaims) {
	c.Set(ContextUserKey, claims)
	c.Set(logger.UserIDKey, claims.UserID)
}

func stripIdentityHeaders(c *gin.Context) {
	for _, h := range spoofableHeaders {
		c.Request.Header.Del(h)
	}
}
