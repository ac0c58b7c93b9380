package middleware

import (
	"net/http"
	"strings"
	"time"

	"ecofood/internal/auth"
	"ecofood/internal/service"
	"ecofood/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

const (
	actorKey        = "actor"
	accessTokenName = "access_token"
)

// Guard authenticates requests with the access token and enforces roles.
type Guard struct {
	tokens *auth.TokenIssuer
}

func NewGuard(tokens *auth.TokenIssuer) *Guard {
	return &Guard{tokens: tokens}
}

// SetTokenCookie stores the access token as an HttpOnly cookie
func SetTokenCookie(c *gin.Context, token string, ttl time.Duration, secure bool) {
	c.SetSameSite(sameSite(secure))
	c.SetCookie(accessTokenName, token, int(ttl.Seconds()), "/", "", secure, true)
}

// ClearTokenCookie removes the access_token cookie
func ClearTokenCookie(c *gin.Context, secure bool) {
	c.SetSameSite(sameSite(secure))
	c.SetCookie(accessTokenName, "", -1, "/", "", secure, true)
}

// Cross-origin deployments need SameSite=None, which browsers only accept with Secure.
func sameSite(secure bool) http.SameSite {
	if secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// RequireRole validates the access token and checks that its role is one of allowedRoles.
// The resulting service.Actor is stored on the context.
func (g *Guard) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try cookie first, fallback to Authorization header
		tokenString, cookieErr := c.Cookie(accessTokenName)
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			tokenString = parts[1]
		}

		claims, err := g.tokens.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}

		if len(allowedRoles) > 0 && !lo.Contains(allowedRoles, claims.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		accountID, err := claims.AccountID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}
		c.Set(actorKey, service.Actor{ID: accountID, Role: claims.Role})
		c.Next()
	}
}

// ActorFrom returns the actor stored by RequireRole.
func ActorFrom(c *gin.Context) (service.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return service.Actor{}, false
	}
	actor, ok := v.(service.Actor)
	return actor, ok
}
