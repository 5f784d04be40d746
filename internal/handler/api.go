package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Ranjiththeeti/harass/internal/metrics"
	"github.com/Ranjiththeeti/harass/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Version is reported by the health check
const Version = "1.0.0"

// Moderator is the message service the handler exposes
type Moderator interface {
	CreateMessage(ctx context.Context, content string) (*models.Message, error)
	ListMessages(ctx context.Context) ([]*models.Message, error)
	GetAnalytics(ctx context.Context) (*models.Analytics, error)
	ClearMessages(ctx context.Context) (int64, error)
}

// Pinger reports whether the message store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler handles HTTP requests
type Handler struct {
	moderator Moderator
	store     Pinger
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(moderator Moderator, store Pinger, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		moderator: moderator,
		store:     store,
		metrics:   m,
		logger:    logger,
	}
}

// RegisterRoutes registers all API routes. createLimit guards message
// creation and may be nil.
func (h *Handler) RegisterRoutes(r *gin.Engine, createLimit gin.HandlerFunc) {
	api := r.Group("/api")
	{
		api.GET("/", h.Root)

		create := []gin.HandlerFunc{h.CreateMessage}
		if createLimit != nil {
			create = append([]gin.HandlerFunc{createLimit}, create...)
		}
		api.POST("/messages", create...)
		api.GET("/messages", h.ListMessages)
		api.DELETE("/messages", h.ClearMessages)

		api.GET("/analytics", h.GetAnalytics)
	}

	r.GET("/health", h.HealthCheck)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
}

// Root answers the API greeting
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "AI Harassment Detection API"})
}

// CreateMessage classifies and stores a message
func (h *Handler) CreateMessage(c *gin.Context) {
	var req models.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.moderator.CreateMessage(c.Request.Context(), *req.Content)
	if err != nil {
		h.logger.Error("Error processing message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Error processing message"})
		return
	}

	c.JSON(http.StatusOK, message)
}

// ListMessages returns the most recent messages
func (h *Handler) ListMessages(c *gin.Context) {
	messages, err := h.moderator.ListMessages(c.Request.Context())
	if err != nil {
		h.logger.Error("Error fetching messages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Error fetching messages"})
		return
	}

	c.JSON(http.StatusOK, messages)
}

// GetAnalytics returns harassment statistics
func (h *Handler) GetAnalytics(c *gin.Context) {
	analytics, err := h.moderator.GetAnalytics(c.Request.Context())
	if err != nil {
		h.logger.Error("Error generating analytics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Error generating analytics"})
		return
	}

	c.JSON(http.StatusOK, analytics)
}

// ClearMessages deletes every stored message
func (h *Handler) ClearMessages(c *gin.Context) {
	deleted, err := h.moderator.ClearMessages(c.Request.Context())
	if err != nil {
		h.logger.Error("Error clearing messages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Error clearing messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Cleared %d messages", deleted)})
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status":  "healthy",
		"service": "harassment-detector",
		"version": Version,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("Store ping failed", zap.Error(err))
		status = http.StatusServiceUnavailable
		body["status"] = "unhealthy"
		body["database"] = "unreachable"
	}

	c.JSON(status, body)
}
