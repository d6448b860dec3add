package api

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/luispater/CopilotBridge/internal/api/handlers/management"
	"github.com/luispater/CopilotBridge/internal/api/middleware"
	"github.com/luispater/CopilotBridge/internal/auth/copilot"
	"github.com/luispater/CopilotBridge/internal/config"
	"github.com/luispater/CopilotBridge/internal/logging"
	"github.com/luispater/CopilotBridge/internal/usage"
	"github.com/luispater/CopilotBridge/internal/util"
	log "github.com/sirupsen/logrus"
)

// Server represents the CopilotBridge HTTP server. The active configuration
// is held behind an atomic so hot reloads are race-free with in-flight
// requests.
type Server struct {
	cfgHolder     atomic.Pointer[config.Config]
	engine        *gin.Engine
	httpServer    *http.Server
	requestLogger *logging.FileRequestLogger
	mgmt          *management.Handler
}

// NewServer creates a new server instance with the given configuration,
// token broker, and usage statistics store. stats may be nil when usage
// tracking is not configured.
func NewServer(cfg *config.Config, broker *copilot.TokenBroker, stats *usage.Statistics) *Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		requestLogger: logging.NewFileRequestLogger(cfg.RequestLog, "logs"),
	}
	s.cfgHolder.Store(cfg)

	engine := gin.New()
	engine.Use(
		logging.GinLogrusLogger(),
		logging.GinLogrusRecovery(),
		middleware.RequestLoggingMiddleware(s.requestLogger),
		stats.Middleware(),
	)

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.mgmt = management.NewHandler(cfg, stats, s.requestLogger)
	mgmtGroup := engine.Group("/v0/management", s.mgmt.Middleware())
	{
		mgmtGroup.GET("/usage", s.mgmt.GetUsage)
		mgmtGroup.GET("/config", s.mgmt.GetConfig)
		mgmtGroup.GET("/request-log", s.mgmt.GetRequestLog)
		mgmtGroup.PUT("/request-log", s.mgmt.PutRequestLog)
	}

	proxyHandler := NewProxyHandler(s.currentConfig, broker)

	// Everything that is not a named route is relayed upstream, so new
	// upstream paths work without route changes here.
	engine.NoRoute(AuthMiddleware(s.currentConfig), proxyHandler.Proxy)

	s.engine = engine
	return s
}

// currentConfig returns the active configuration.
func (s *Server) currentConfig() *config.Config {
	return s.cfgHolder.Load()
}

// Start begins listening for and serving HTTP requests. It blocks until the
// server stops.
func (s *Server) Start() error {
	cfg := s.currentConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	log.Infof("server listening on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server, waiting for in-flight requests
// until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	log.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}

// UpdateConfig applies a reloaded configuration: log level, request log
// toggle, and everything read through the config holder.
func (s *Server) UpdateConfig(cfg *config.Config) {
	util.SetLogLevel(cfg)
	s.requestLogger.SetEnabled(cfg.RequestLog)
	s.mgmt.SetConfig(cfg)
	s.cfgHolder.Store(cfg)
	log.Info("configuration reloaded")
}

// AuthMiddleware authenticates inbound requests against the configured
// access token. The comparison is constant-time so the check does not leak
// prefix length information.
func AuthMiddleware(getCfg func() *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		expected := getCfg().AccessToken

		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error: ErrorDetail{
					Message: "invalid access token",
					Type:    "authentication_error",
				},
			})
			return
		}

		c.Next()
	}
}

// extractBearerToken pulls the bearer secret from the Authorization header.
func extractBearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}
