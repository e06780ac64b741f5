package api

import (
	"errors"
	"net/http"
	"strings"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// Authenticate validates the bearer session token and stores the caller's
// id and role in the request context.
func (h *Handler) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondError(c, http.StatusUnauthorized, "missing session token")
			c.Abort()
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		claims, err := h.auth.ParseToken(token)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "invalid or expired session")
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// RequireRole gates a route group on the session role. Checked once per
// request; handlers never branch on role themselves.
func (h *Handler) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxRole) != role {
			respondError(c, http.StatusForbidden, "insufficient role")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

func isAdmin(c *gin.Context) bool {
	return c.GetString(ctxRole) == models.RoleAdmin
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"data": data})
}

func respondError(c *gin.Context, status int, message interface{}) {
	c.JSON(status, gin.H{"error": message})
}

// respondServiceError maps domain errors to HTTP responses. Services wrap
// sentinels with context, so matching goes through errors.Is/As. Internal
// error text is logged, never relayed to the client.
func respondServiceError(c *gin.Context, err error) {
	var oos *models.OutOfStockError
	if errors.As(err, &oos) {
		respondError(c, http.StatusBadRequest, gin.H{
			"message":    "insufficient stock",
			"outOfStock": oos.Lines,
		})
		return
	}

	switch {
	case errors.Is(err, models.ErrNotFound):
		respondError(c, http.StatusNotFound, "not found")
	case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, models.ErrPasswordMismatch),
		errors.Is(err, models.ErrEmailTaken),
		errors.Is(err, models.ErrNoPaymentCustomer),
		errors.Is(err, models.ErrResetTokenInvalid),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrVariantMismatch):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		util.GetLogger().Error("Unhandled request error",
			zap.String("path", c.FullPath()), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}
