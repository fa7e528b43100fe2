package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"classdrive/models"
	"classdrive/utils"
)

const principalKey = "principal"

// AuthMiddleware verifies the bearer token issued by the external
// identity service and attaches the resulting principal to the request.
// Everything past this point receives the principal explicitly.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			utils.UnauthorizedResponse(c, "authorization token required")
			c.Abort()
			return
		}

		claims, err := utils.VerifyToken(token, jwtSecret)
		if err != nil {
			utils.UnauthorizedResponse(c, "invalid or expired token")
			c.Abort()
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			utils.UnauthorizedResponse(c, "invalid user ID in token")
			c.Abort()
			return
		}

		role := models.UserRole(claims.Role)
		if !role.Valid() {
			utils.UnauthorizedResponse(c, "invalid role in token")
			c.Abort()
			return
		}

		c.Set(principalKey, models.Principal{UserID: userID, Role: role})
		c.Next()
	}
}

// RequireAdmin blocks non-admin principals. Mount after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			utils.UnauthorizedResponse(c, "authentication required")
			c.Abort()
			return
		}
		if !principal.IsAdmin() {
			utils.ForbiddenResponse(c, "admin role required")
			c.Abort()
			return
		}
		c.Next()
	}
}

func GetPrincipal(c *gin.Context) (models.Principal, bool) {
	value, exists := c.Get(principalKey)
	if !exists {
		return models.Principal{}, false
	}
	principal, ok := value.(models.Principal)
	return principal, ok
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(authHeader[len(bearerPrefix):])
}
