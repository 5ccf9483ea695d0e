package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/someonesays/roomserver/internal/adapters/session"
	"github.com/someonesays/roomserver/internal/config"
	"github.com/someonesays/roomserver/internal/core"
)

func SetupRouter(ctx context.Context, cfg *config.Config, registry *core.Registry, ctl *session.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"rooms":  registry.Count(),
		})
	})

	api := r.Group("/api")
	api.GET("/rooms/ws", func(c *gin.Context) {
		ctl.HandleSession(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
