package api

import (
	"net/http"

	"questboard/internal/model"
	"questboard/internal/service"
	"questboard/pkg/auth"
	"questboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type submissionRoutes struct {
	ss service.SubmissionServiceI
}

func NewSubmissionRoutes(handler *gin.RouterGroup, ss service.SubmissionServiceI, a *auth.TelegramAuth) {
	r := &submissionRoutes{ss: ss}

	quests := handler.Group("/quests/:quest_id/submissions")
	quests.Use(a.TelegramAuthMiddleware())
	{
		quests.POST("", r.SubmitWork)
		quests.GET("", r.ListSubmissions)
	}

	h := handler.Group("/submissions")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.GET("/:submission_id", r.GetSubmission)
		h.POST("/:submission_id/review", r.ReviewSubmission)
	}
}

// submitWorkRequest names the participant by application_id; without it the caller is the
// participant.
type submitWorkRequest struct {
	ApplicationID *uuid.UUID `json:"application_id"`
	ParticipantID *int64     `json:"participant_id"`
	Text          string     `json:"text"`
	Link          string     `json:"link"`
	Files         []string   `json:"files"`
}

func (req *submitWorkRequest) participantRef(callerID int64) model.ParticipantRef {
	ref := model.ParticipantRef{
		UserID:        req.ParticipantID,
		ApplicationID: req.ApplicationID,
	}
	if ref.UserID == nil && ref.ApplicationID == nil {
		ref.UserID = &callerID
	}
	return ref
}

type reviewSubmissionRequest struct {
	Decision string          `json:"decision" binding:"required"`
	Feedback string          `json:"feedback"`
	Payouts  []payoutRequest `json:"payouts"`
}

func (r *submissionRoutes) SubmitWork(c *gin.Context) {
	log := logger.Logger()

	questID, ok := uuidParam(c, "quest_id")
	if !ok {
		return
	}

	var req submitWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	sub, err := r.ss.SubmitWork(c.Request.Context(), questID, user.ID, req.participantRef(user.ID), model.SubmissionPayload{
		Text:  req.Text,
		Link:  req.Link,
		Files: req.Files,
	})
	if err != nil {
		respondError(c, "failed to submit work", err)
		return
	}

	c.JSON(http.StatusCreated, newSubmissionResponse(sub))
}

func (r *submissionRoutes) ListSubmissions(c *gin.Context) {
	questID, ok := uuidParam(c, "quest_id")
	if !ok {
		return
	}

	subs, err := r.ss.ListSubmissions(c.Request.Context(), questID)
	if err != nil {
		respondError(c, "failed to list submissions", err)
		return
	}

	out := make([]submissionResponse, len(subs))
	for i, sub := range subs {
		out[i] = newSubmissionResponse(sub)
	}
	c.JSON(http.StatusOK, out)
}

func (r *submissionRoutes) GetSubmission(c *gin.Context) {
	submissionID, ok := uuidParam(c, "submission_id")
	if !ok {
		return
	}

	sub, err := r.ss.GetSubmission(c.Request.Context(), submissionID)
	if err != nil {
		respondError(c, "failed to get submission", err)
		return
	}

	c.JSON(http.StatusOK, newSubmissionResponse(sub))
}

func (r *submissionRoutes) ReviewSubmission(c *gin.Context) {
	log := logger.Logger()

	submissionID, ok := uuidParam(c, "submission_id")
	if !ok {
		return
	}

	var req reviewSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	sub, err := r.ss.ReviewSubmission(c.Request.Context(), submissionID, user.ID,
		model.SubmissionDecision(req.Decision), req.Feedback, toPayouts(req.Payouts))
	if err != nil {
		respondError(c, "failed to review submission", err)
		return
	}

	c.JSON(http.StatusOK, newSubmissionResponse(sub))
}
