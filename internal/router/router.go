package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/examly/session-engine/internal/auth"
	"github.com/examly/session-engine/internal/config"
	"github.com/examly/session-engine/internal/handler"
	"github.com/examly/session-engine/internal/middleware"
	"github.com/examly/session-engine/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(tokens *auth.TokenService, handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── Sessions (optional auth: anonymous gets the free preview) ─────
	api := router.Group("/api/v1")
	api.Use(middleware.OptionalAuth(tokens))
	{
		api.POST("/sessions", handlers.Session.Start)
		api.GET("/sessions/:session_id", handlers.Session.State)
		api.GET("/sessions/:session_id/paper", handlers.Session.Paper)
		api.POST("/sessions/:session_id/answers", handlers.Session.SelectAnswer)
		api.POST("/sessions/:session_id/flags", handlers.Session.Flag)
		api.DELETE("/sessions/:session_id/flags/:question_id", handlers.Session.Unflag)
		api.POST("/sessions/:session_id/submit", handlers.Session.Submit)
		api.GET("/sessions/:session_id/result", handlers.Session.Result)
		api.DELETE("/sessions/:session_id", handlers.Session.Abandon)
	}

	// ─── WebSocket (token via query param) ─────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.OptionalWSAuth(tokens))
	{
		ws.GET("/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	return router
}
