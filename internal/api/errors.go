package api

import (
	"net/http"

	"questboard/internal/service"
	"questboard/pkg/auth"
	"questboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errorStatus = map[string]int{
	"QUEST_NOT_FOUND":       http.StatusNotFound,
	"APPLICATION_NOT_FOUND": http.StatusNotFound,
	"SUBMISSION_NOT_FOUND":  http.StatusNotFound,
	"USER_NOT_FOUND":        http.StatusNotFound,

	"NOT_QUEST_CREATOR": http.StatusForbidden,
	"NOT_A_PARTICIPANT": http.StatusForbidden,

	"INVALID_TRANSITION":           http.StatusConflict,
	"DUPLICATE_ACTIVE_APPLICATION": http.StatusConflict,
	"LOCKED_AFTER_APPROVAL":        http.StatusConflict,
	"NOT_IN_PROGRESS":              http.StatusConflict,
	"QUEST_HAS_APPLICATIONS":       http.StatusConflict,
	"USER_EXISTS":                  http.StatusConflict,
	"SELF_APPLICATION":             http.StatusConflict,

	"INSUFFICIENT_BALANCE":    http.StatusUnprocessableEntity,
	"OUT_OF_TIER_RANGE":       http.StatusUnprocessableEntity,
	"SUBMISSION_CAP_EXCEEDED": http.StatusUnprocessableEntity,
	"INVALID_PAYOUT":          http.StatusUnprocessableEntity,

	"INVALID_AMOUNT":          http.StatusBadRequest,
	"INVALID_CATEGORY":        http.StatusBadRequest,
	"INVALID_TIER":            http.StatusBadRequest,
	"INVALID_DECISION":        http.StatusBadRequest,
	"INVALID_PARTICIPANT_REF": http.StatusBadRequest,
}

// respondError writes a business error with its code, or a generic 500 for anything else.
func respondError(c *gin.Context, op string, err error) {
	log := logger.Logger()

	code := service.ErrorCode(err)
	status, ok := errorStatus[code]
	if !ok {
		log.Error(op, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	log.Info(op, zap.String("code", code))
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func currentUser(c *gin.Context) (*auth.TelegramUserData, bool) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		logger.Logger().Error("telegram user data not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return nil, false
	}
	return user, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
