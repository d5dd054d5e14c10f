// Package router provides medbot routing.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/medbot/internal/medbot/handler"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Chat    *handler.ChatHandler
	Health  *handler.HealthHandler
	Metrics http.Handler
}

// Register registers the medbot routes on engine.
func Register(engine *gin.Engine, h Handlers) {
	// Chat
	engine.GET("/", h.Chat.Index)
	engine.GET("/get", h.Chat.Chat)
	engine.POST("/get", h.Chat.Chat)

	// Service endpoints
	engine.GET("/healthz", h.Health.Healthz)
	engine.GET("/readyz", h.Health.Readyz)
	engine.GET("/version", h.Health.Version)
	if h.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(h.Metrics))
	}

	logger.Info("HTTP routes registered")
}
