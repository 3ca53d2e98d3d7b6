package api

import (
	"net/http"

	"questboard/pkg/auth"

	"github.com/gin-gonic/gin"
)

// WSServer streams a user's events over an upgraded connection.
type WSServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, telegramID int64)
}

type notificationRoutes struct {
	hub WSServer
}

func NewNotificationRoutes(handler *gin.RouterGroup, hub WSServer, a *auth.TelegramAuth) {
	r := &notificationRoutes{hub: hub}

	h := handler.Group("/notifications")
	h.Use(a.TelegramAuthMiddleware())

	h.GET("/ws", r.handleWebSocket)
}

func (r *notificationRoutes) handleWebSocket(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	r.hub.ServeWS(c.Writer, c.Request, user.ID)
}
