package middleware

import (
	"net/http"

	"questboard/pkg/auth"
	"questboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Authorization struct {
	admins map[int64]struct{}
}

func NewAuthorization(adminIDs []int64) *Authorization {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Authorization{
		admins: admins,
	}
}

func (a *Authorization) IsAdmin(telegramID int64) bool {
	_, ok := a.admins[telegramID]
	return ok
}

// AdminOnly must run after the Telegram auth middleware.
func (a *Authorization) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		telegramUser, ok := auth.CurrentUser(c)
		if !ok {
			log.Error("telegram user data not found in context")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if !a.IsAdmin(telegramUser.ID) {
			log.Info("unauthorized access attempt to admin endpoint",
				zap.Int64("telegram_id", telegramUser.ID))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}

		c.Set("is_admin", true)
		c.Next()
	}
}
