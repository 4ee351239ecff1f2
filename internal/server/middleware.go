package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"vehicle-auction/internal/auctionerrors"
	model "vehicle-auction/internal/models"
	"vehicle-auction/services/bidding/helpers"
	"vehicle-auction/utils"

	"github.com/gin-gonic/gin"
)

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	fields := map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	}
	if userID := c.GetString(helpers.ContextUserID); userID != "" {
		fields["user_id"] = userID
	}
	utils.Info("HTTP Request", fields)
}

// JWTAuth validates a Bearer access token and stores its subject and role
// in the context under helpers.ContextUserID and helpers.ContextRole
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			utils.AbortWithError(c, http.StatusUnauthorized, helpers.CodeUnauthenticated,
				auctionerrors.ErrUnauthenticated, "missing bearer token")
			return
		}

		userID, role, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			utils.AbortWithError(c, http.StatusUnauthorized, helpers.CodeUnauthenticated,
				errors.Join(auctionerrors.ErrUnauthenticated, err), "invalid token")
			utils.Warn("JWTAuth: token rejected", map[string]any{"path": c.Request.URL.Path, "error": err.Error()})
			return
		}

		c.Set(helpers.ContextUserID, userID)
		c.Set(helpers.ContextRole, role)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not one of roles
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := helpers.ActorFromContext(c)
		if !ok {
			utils.AbortWithError(c, http.StatusUnauthorized, helpers.CodeUnauthenticated,
				auctionerrors.ErrUnauthenticated, "authentication required")
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		utils.AbortWithError(c, http.StatusForbidden, helpers.CodeForbidden,
			auctionerrors.ErrForbidden, "role not permitted")
	}
}
