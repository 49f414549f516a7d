package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/pkg/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys set by AuthMiddleware
const (
	KeyUserID = "user_id"
	KeyEmail  = "email"
	KeyRole   = "role"
	KeyClaims = "claims"
	KeyToken  = "token"
)

// AuthMiddleware validates JWT tokens and injects user claims into context
func AuthMiddleware(jwtManager *auth.JWTManager, blacklist auth.Blacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Authorization header required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Invalid authorization format. Use: Bearer <token>"})
			return
		}
		tokenString := strings.TrimSpace(parts[1])

		revoked, err := blacklist.IsRevoked(c.Request.Context(), tokenString)
		if err != nil {
			// fail closed
			log.Printf("❌ Blacklist lookup failed: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Auth server error"})
			return
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Token has been revoked"})
			return
		}

		claims, err := jwtManager.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Invalid or expired token"})
			return
		}

		// Store user info in context for downstream handlers
		c.Set(KeyUserID, claims.UserID)
		c.Set(KeyEmail, claims.Email)
		c.Set(KeyRole, model.Role(claims.Role))
		c.Set(KeyClaims, claims)
		c.Set(KeyToken, tokenString)

		c.Next()
	}
}

// RequireRole lets the request through only for the given roles.
// It must run after AuthMiddleware.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CurrentRole(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, model.ErrorResponse{Error: "Insufficient permissions"})
	}
}

// CurrentUserID returns the authenticated user's id
func CurrentUserID(c *gin.Context) uuid.UUID {
	return c.MustGet(KeyUserID).(uuid.UUID)
}

// CurrentRole returns the authenticated user's role, or "" when unauthenticated
func CurrentRole(c *gin.Context) model.Role {
	role, _ := c.Get(KeyRole)
	r, _ := role.(model.Role)
	return r
}

// CurrentClaims returns the validated claims and the raw bearer token
func CurrentClaims(c *gin.Context) (*auth.Claims, string) {
	return c.MustGet(KeyClaims).(*auth.Claims), c.GetString(KeyToken)
}
