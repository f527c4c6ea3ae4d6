// Package http exposes the REST auth API and the WebSocket transport.
package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/netchat/netchat-server/internal/auth"
	"github.com/netchat/netchat-server/internal/config"
	"github.com/netchat/netchat-server/internal/core"
)

// NewServer builds the HTTP server: health, auth API and the WebSocket
// bridge into the chat core.
func NewServer(cfg config.Config, gate *auth.Gate, reg *core.Registry, worker *core.Worker, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	api := NewAPIHandlers(gate, logger)
	ws := NewWSHandler(gate, reg, worker, logger)

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})
	router.POST("/api/register", api.Register)
	router.POST("/api/login", api.Login)
	router.GET("/api/profile", AuthMiddleware(gate, logger), api.Profile)
	router.GET("/ws", ws.Handle)

	return &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
