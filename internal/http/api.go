package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fetchbot/internal/bot"
	"fetchbot/internal/service"
	"fetchbot/internal/transport"
)

// Handler wires HTTP routes to the bot and user services.
type Handler struct {
	bot      *bot.Bot
	users    service.UserService
	outbox   *transport.Outbox
	secret   []byte
	tokenTTL time.Duration
	logger   *logrus.Logger
}

func NewHandler(b *bot.Bot, users service.UserService, outbox *transport.Outbox, jwtSecret string, tokenTTL time.Duration, logger *logrus.Logger) *Handler {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Handler{
		bot:      b,
		users:    users,
		outbox:   outbox,
		secret:   []byte(jwtSecret),
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusAccepted, gin.H{"ok": "ok"})
		})

		authed := api.Group("", h.authMiddleware())
		{
			authed.POST("/commands", h.command)
			authed.GET("/messages", h.listMessages)
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type commandRequest struct {
	Command string `json:"command" binding:"required"`
	Payload string `json:"payload"`
}

func (h *Handler) command(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := currentUserID(c)
	if err := h.bot.HandleCommand(c.Request.Context(), userID, req.Command, req.Payload); err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("handle command")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"accepted": req.Command})
}

type messageResponse struct {
	ID     int64  `json:"id"`
	Text   string `json:"text"`
	SentAt string `json:"sent_at"`
}

func (h *Handler) listMessages(c *gin.Context) {
	userID := currentUserID(c)
	msgs := h.outbox.Messages(userID)

	resp := make([]messageResponse, len(msgs))
	for i := range msgs {
		resp[i] = messageResponse{
			ID:     msgs[i].ID,
			Text:   msgs[i].Text,
			SentAt: msgs[i].SentAt.Format(time.RFC3339),
		}
	}
	c.JSON(http.StatusOK, resp)
}
