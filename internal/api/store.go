package api

import (
	"net/http"

	"questboard/pkg/auth"
	"questboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// InvoiceCreator issues Telegram Stars invoice links for gold packs.
type InvoiceCreator interface {
	CreateGoldInvoiceLink(gold int64) (string, error)
}

type storeRoutes struct {
	store InvoiceCreator
}

func NewStoreRoutes(handler *gin.RouterGroup, a *auth.TelegramAuth, store InvoiceCreator) {
	r := &storeRoutes{store: store}

	h := handler.Group("/store")
	h.Use(a.TelegramAuthMiddleware())

	h.POST("/gold-invoice", r.CreateGoldInvoice)
}

type goldInvoiceRequest struct {
	Gold int64 `json:"gold" binding:"required"`
}

func (r *storeRoutes) CreateGoldInvoice(c *gin.Context) {
	log := logger.Logger()

	var req goldInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	link, err := r.store.CreateGoldInvoiceLink(req.Gold)
	if err != nil {
		respondError(c, "failed to create invoice link", err)
		return
	}

	log.Info("gold invoice created",
		zap.Int64("telegram_id", user.ID),
		zap.Int64("gold", req.Gold))

	c.JSON(http.StatusOK, gin.H{"link": link})
}
