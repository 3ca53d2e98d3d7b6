package api

import (
	"net/http"

	"questboard/internal/model"
	"questboard/internal/service"
	"questboard/pkg/auth"
	"questboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type applicationRoutes struct {
	as service.ApplicationServiceI
}

func NewApplicationRoutes(handler *gin.RouterGroup, as service.ApplicationServiceI, a *auth.TelegramAuth) {
	r := &applicationRoutes{as: as}

	quests := handler.Group("/quests/:quest_id/applications")
	quests.Use(a.TelegramAuthMiddleware())
	{
		quests.POST("", r.ApplyToQuest)
		quests.GET("", r.ListApplications)
	}

	h := handler.Group("/applications")
	h.Use(a.TelegramAuthMiddleware())
	h.POST("/:application_id/review", r.ReviewApplication)
}

type reviewApplicationRequest struct {
	Decision string `json:"decision" binding:"required"`
	Reason   string `json:"reason"`
}

func (r *applicationRoutes) ApplyToQuest(c *gin.Context) {
	questID, ok := uuidParam(c, "quest_id")
	if !ok {
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	app, err := r.as.ApplyToQuest(c.Request.Context(), questID, user.ID)
	if err != nil {
		respondError(c, "failed to apply to quest", err)
		return
	}

	c.JSON(http.StatusCreated, newApplicationResponse(app))
}

func (r *applicationRoutes) ListApplications(c *gin.Context) {
	questID, ok := uuidParam(c, "quest_id")
	if !ok {
		return
	}

	apps, err := r.as.ListApplications(c.Request.Context(), questID)
	if err != nil {
		respondError(c, "failed to list applications", err)
		return
	}

	out := make([]applicationResponse, len(apps))
	for i, app := range apps {
		out[i] = newApplicationResponse(app)
	}
	c.JSON(http.StatusOK, out)
}

func (r *applicationRoutes) ReviewApplication(c *gin.Context) {
	log := logger.Logger()

	applicationID, ok := uuidParam(c, "application_id")
	if !ok {
		return
	}

	var req reviewApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	app, err := r.as.ReviewApplication(c.Request.Context(), applicationID, user.ID, model.ReviewDecision(req.Decision), req.Reason)
	if err != nil {
		respondError(c, "failed to review application", err)
		return
	}

	c.JSON(http.StatusOK, newApplicationResponse(app))
}
