package api

import (
	"net/http"
	"strconv"

	"questboard/internal/middleware"
	"questboard/internal/service"
	"questboard/pkg/auth"
	"questboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultTransactionsLimit = 50

type ledgerRoutes struct {
	ls service.LedgerServiceI
}

func NewLedgerRoutes(handler *gin.RouterGroup, ls service.LedgerServiceI, a *auth.TelegramAuth, authz *middleware.Authorization) {
	r := &ledgerRoutes{ls: ls}

	h := handler.Group("/ledger")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.GET("/balance", r.GetBalance)
		h.GET("/transactions", r.ListTransactions)
		h.POST("/cashout", r.Cashout)
		h.POST("/transfer", r.Transfer)
	}

	admin := handler.Group("/admin/users/:telegram_id")
	admin.Use(a.TelegramAuthMiddleware(), authz.AdminOnly())
	{
		admin.POST("/purchase", r.Purchase)
		admin.GET("/reconcile", r.Reconcile)
	}
}

type amountRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

type transferRequest struct {
	To     int64 `json:"to" binding:"required"`
	Amount int64 `json:"amount" binding:"required"`
}

type purchaseRequest struct {
	Amount     int64  `json:"amount" binding:"required"`
	ReceiptRef string `json:"receipt_ref"`
}

func (r *ledgerRoutes) GetBalance(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	balance, err := r.ls.GetBalance(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, "failed to get balance", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"gold_balance": balance})
}

func (r *ledgerRoutes) ListTransactions(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	limit := defaultTransactionsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	txns, err := r.ls.ListTransactions(c.Request.Context(), user.ID, limit)
	if err != nil {
		respondError(c, "failed to list transactions", err)
		return
	}

	out := make([]transactionResponse, len(txns))
	for i, txn := range txns {
		out[i] = newTransactionResponse(txn)
	}
	c.JSON(http.StatusOK, out)
}

func (r *ledgerRoutes) Cashout(c *gin.Context) {
	log := logger.Logger()

	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	txn, err := r.ls.Cashout(c.Request.Context(), user.ID, req.Amount)
	if err != nil {
		respondError(c, "failed to cash out", err)
		return
	}

	c.JSON(http.StatusOK, newTransactionResponse(txn))
}

func (r *ledgerRoutes) Transfer(c *gin.Context) {
	log := logger.Logger()

	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := r.ls.Transfer(c.Request.Context(), user.ID, req.To, req.Amount); err != nil {
		respondError(c, "failed to transfer gold", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (r *ledgerRoutes) Purchase(c *gin.Context) {
	log := logger.Logger()

	id, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid telegram_id"})
		return
	}

	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	txn, err := r.ls.Purchase(c.Request.Context(), id, req.Amount, req.ReceiptRef)
	if err != nil {
		respondError(c, "failed to record purchase", err)
		return
	}

	c.JSON(http.StatusCreated, newTransactionResponse(txn))
}

func (r *ledgerRoutes) Reconcile(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid telegram_id"})
		return
	}

	rec, err := r.ls.Reconcile(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed to reconcile balance", err)
		return
	}

	if !rec.Consistent() {
		logger.Logger().Warn("balance drift detected",
			zap.Int64("telegram_id", id),
			zap.Int64("stored", rec.Stored),
			zap.Int64("computed", rec.Computed))
	}
	c.JSON(http.StatusOK, newReconciliationResponse(rec))
}
