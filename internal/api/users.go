package api

import (
	"net/http"
	"strconv"

	"questboard/internal/model"
	"questboard/internal/service"
	"questboard/pkg/auth"
	"questboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type userRoutes struct {
	us service.UserServiceI
}

func NewUserRoutes(handler *gin.RouterGroup, us service.UserServiceI, a *auth.TelegramAuth) {
	r := &userRoutes{us: us}
	h := handler.Group("/users")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.POST("/", r.RegisterUser)
		h.GET("/me", r.GetMe)
		h.GET("/:telegram_id", r.GetUserByTelegramID)
	}
}

type RegisterUserRequest struct {
	Handle string `json:"handle"`
}

type userResponse struct {
	TelegramID       int64  `json:"telegram_id"`
	Handle           string `json:"handle"`
	Username         string `json:"username"`
	GoldBalance      int64  `json:"gold_balance"`
	RegistrationDate string `json:"registration_date"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		TelegramID:       u.TelegramID,
		Handle:           u.Handle,
		Username:         u.Username,
		GoldBalance:      u.GoldBalance,
		RegistrationDate: u.RegistrationDate.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (r *userRoutes) RegisterUser(c *gin.Context) {
	log := logger.Logger()

	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	u := &model.User{
		TelegramID:       user.ID,
		Handle:           req.Handle,
		Username:         user.Username,
		RegistrationDate: user.AuthDate,
	}

	if err := r.us.RegisterUser(c.Request.Context(), u); err != nil {
		respondError(c, "failed to register user", err)
		return
	}

	c.JSON(http.StatusCreated, newUserResponse(u))
}

func (r *userRoutes) GetMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	u, err := r.us.GetUserByTelegramID(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, "failed to get user", err)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(u))
}

func (r *userRoutes) GetUserByTelegramID(c *gin.Context) {
	log := logger.Logger()

	id, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil {
		log.Info("failed to parse telegram_id", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid telegram_id"})
		return
	}

	u, err := r.us.GetUserByTelegramID(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed to get user", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"telegram_id": u.TelegramID,
		"handle":      u.Handle,
		"username":    u.Username,
	})
}
