package api

import (
	"net/http"
	"strconv"
	"time"

	"questboard/internal/model"
	"questboard/internal/service"
	"questboard/pkg/auth"
	"questboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type questRoutes struct {
	qs service.QuestServiceI
}

func NewQuestRoutes(handler *gin.RouterGroup, qs service.QuestServiceI, a *auth.TelegramAuth) {
	r := &questRoutes{qs: qs}

	h := handler.Group("/quests")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.POST("", r.CreateQuest)
		h.GET("", r.ListQuests)
		h.GET("/:quest_id", r.GetQuest)
		h.PATCH("/:quest_id", r.EditQuest)
		h.DELETE("/:quest_id", r.DeleteQuest)
		h.POST("/:quest_id/cancel", r.CancelQuest)
		h.POST("/:quest_id/complete", r.CompleteQuest)
	}
}

type createQuestRequest struct {
	Title          string     `json:"title" binding:"required"`
	Description    string     `json:"description"`
	Category       string     `json:"category" binding:"required"`
	DifficultyTier string     `json:"difficulty_tier" binding:"required"`
	GoldBudget     int64      `json:"gold_budget" binding:"required"`
	DueDate        *time.Time `json:"due_date"`
}

type editQuestRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Category    *string    `json:"category"`
	DueDate     *time.Time `json:"due_date"`
	GoldBudget  *int64     `json:"gold_budget"`
}

type completeQuestRequest struct {
	Payouts []payoutRequest `json:"payouts"`
}

func (r *questRoutes) CreateQuest(c *gin.Context) {
	log := logger.Logger()

	var req createQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	q, err := r.qs.CreateQuest(c.Request.Context(), service.CreateQuestRequest{
		CreatorID:   user.ID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Tier:        model.DifficultyTier(req.DifficultyTier),
		GoldBudget:  req.GoldBudget,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respondError(c, "failed to create quest", err)
		return
	}

	c.JSON(http.StatusCreated, newQuestResponse(q))
}

func (r *questRoutes) ListQuests(c *gin.Context) {
	filter := model.QuestFilter{
		Status:   model.QuestStatus(c.Query("status")),
		Category: c.Query("category"),
		Tier:     model.DifficultyTier(c.Query("tier")),
	}

	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
			return
		}
		*dst = n
	}

	if raw := c.Query("creator_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid creator_id"})
			return
		}
		filter.CreatorID = &id
	}

	quests, err := r.qs.ListQuests(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "failed to list quests", err)
		return
	}

	out := make([]questResponse, len(quests))
	for i, q := range quests {
		out[i] = newQuestResponse(q)
	}
	c.JSON(http.StatusOK, out)
}

func (r *questRoutes) GetQuest(c *gin.Context) {
	questID, ok := uuidParam(c, "quest_id")
	if !ok {
		return
	}

	q, err := r.qs.GetQuest(c.Request.Context(), questID)
	if err != nil {
		respondError(c, "failed to get quest", err)
		return
	}

	c.JSON(http.StatusOK, newQuestResponse(q))
}

func (r *questRoutes) EditQuest(c *gin.Context) {
	log := logger.Logger()

	questID, ok := uuidParam(c, "quest_id")
	if !ok {
		return
	}

	var req editQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	q, err := r.qs.EditQuest(c.Request.Context(), questID, user.ID, model.QuestEdit{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		DueDate:     req.DueDate,
		GoldBudget:  req.GoldBudget,
	})
	if err != nil {
		respondError(c, "failed to edit quest", err)
		return
	}

	c.JSON(http.StatusOK, newQuestResponse(q))
}

func (r *questRoutes) DeleteQuest(c *gin.Context) {
	questID, ok := uuidParam(c, "quest_id")
	if !ok {
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	refund, err := r.qs.DeleteQuest(c.Request.Context(), questID, user.ID)
	if err != nil {
		respondError(c, "failed to delete quest", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"refunded": refund})
}

func (r *questRoutes) CancelQuest(c *gin.Context) {
	questID, ok := uuidParam(c, "quest_id")
	if !ok {
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	q, err := r.qs.CancelQuest(c.Request.Context(), questID, user.ID)
	if err != nil {
		respondError(c, "failed to cancel quest", err)
		return
	}

	c.JSON(http.StatusOK, newQuestResponse(q))
}

func (r *questRoutes) CompleteQuest(c *gin.Context) {
	log := logger.Logger()

	questID, ok := uuidParam(c, "quest_id")
	if !ok {
		return
	}

	var req completeQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	q, err := r.qs.CompleteQuest(c.Request.Context(), questID, user.ID, toPayouts(req.Payouts))
	if err != nil {
		respondError(c, "failed to complete quest", err)
		return
	}

	c.JSON(http.StatusOK, newQuestResponse(q))
}
