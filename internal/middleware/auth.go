package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"sabitax/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Context keys set by the auth middleware
const (
	ContextUserID   = "userID"
	ContextUserRole = "userRole"
)

// WebhookSecretHeader carries the shared secret on tax authority callbacks.
const WebhookSecretHeader = "X-Webhook-Secret"

// Auth validates tokens issued by the identity service.
type Auth struct {
	secret []byte
}

func NewAuth(secret []byte) *Auth {
	return &Auth{secret: secret}
}

// RequireAuth accepts any valid token whose subject is a user id.
func (a *Auth) RequireAuth() gin.HandlerFunc {
	return a.RequireRole()
}

// RequireRole validates the JWT token and, when allowedRoles is non-empty, checks the role claim
func (a *Auth) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try cookie first, fallback to Authorization header
		tokenString, cookieErr := c.Cookie("access_token")
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

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return a.secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
			return
		}

		sub, _ := claims.GetSubject()
		userID, err := uuid.Parse(sub)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Token subject is not a user id"))
			return
		}

		userRole, _ := claims["role"].(string)
		if len(allowedRoles) > 0 {
			if userRole == "" {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Role not found in token"))
				return
			}
			if !lo.Contains(allowedRoles, userRole) {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
				return
			}
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextUserRole, userRole)

		c.Next()
	}
}

// UserID returns the authenticated user set by RequireRole/RequireAuth.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// RequireWebhookSecret guards tax authority callbacks with a shared secret header.
func RequireWebhookSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(WebhookSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid webhook secret"))
			return
		}
		c.Next()
	}
}
