// Package management implements the management API endpoints of the
// CopilotBridge server. Access is gated by a bcrypt-hashed management key
// configured separately from the inbound access token.
package management

import (
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/luispater/CopilotBridge/internal/config"
	"github.com/luispater/CopilotBridge/internal/logging"
	"github.com/luispater/CopilotBridge/internal/usage"
	"golang.org/x/crypto/bcrypt"
)

// Handler serves the management API endpoints.
type Handler struct {
	cfg           atomic.Pointer[config.Config]
	stats         *usage.Statistics
	requestLogger *logging.FileRequestLogger
}

// NewHandler creates a management handler bound to the current
// configuration, the usage statistics store, and the request logger.
func NewHandler(cfg *config.Config, stats *usage.Statistics, requestLogger *logging.FileRequestLogger) *Handler {
	h := &Handler{
		stats:         stats,
		requestLogger: requestLogger,
	}
	h.cfg.Store(cfg)
	return h
}

// SetConfig swaps the configuration used by the management endpoints,
// called on configuration hot reload.
func (h *Handler) SetConfig(cfg *config.Config) {
	h.cfg.Store(cfg)
}

// Middleware authenticates management requests. The presented key is
// checked against the configured bcrypt hash; a plain-text match against
// the stored value is never performed.
func (h *Handler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		secretKey := h.cfg.Load().RemoteManagement.SecretKey
		if secretKey == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "management API is disabled"})
			return
		}

		key := strings.TrimSpace(c.GetHeader("X-Management-Key"))
		if key == "" {
			auth := c.GetHeader("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			}
		}
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "management key required"})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(secretKey), []byte(key)); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid management key"})
			return
		}

		c.Next()
	}
}

// GetUsage returns the persisted usage counters as JSON.
func (h *Handler) GetUsage(c *gin.Context) {
	snapshot, err := h.stats.Snapshot()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", snapshot)
}

// GetConfig returns the active configuration with the inbound access token
// redacted.
func (h *Handler) GetConfig(c *gin.Context) {
	cfg := h.cfg.Load()
	redacted := *cfg
	if redacted.AccessToken != "" {
		redacted.AccessToken = "[REDACTED]"
	}
	redacted.RemoteManagement.SecretKey = "[REDACTED]"
	c.JSON(http.StatusOK, redacted)
}

// GetRequestLog reports whether request logging is currently enabled.
func (h *Handler) GetRequestLog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"request-log": h.requestLogger.IsEnabled()})
}

// PutRequestLog toggles request logging at runtime.
func (h *Handler) PutRequestLog(c *gin.Context) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must contain a boolean \"enabled\" field"})
		return
	}

	h.requestLogger.SetEnabled(*body.Enabled)
	c.JSON(http.StatusOK, gin.H{"request-log": *body.Enabled})
}
