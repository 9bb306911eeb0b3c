package http

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/dkeye/relay/internal/adapters/signal"
	"github.com/dkeye/relay/internal/app"
	"github.com/dkeye/relay/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// StatsSource reports live session and track counts.
type StatsSource interface {
	Stats(ctx context.Context) (app.Stats, error)
}

func SetupRouter(ctx context.Context, cfg *config.Config, ctrl *signal.SignalWSController, stats StatsSource) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.Static("/static", cfg.StaticPath)
	page := func(name string) gin.HandlerFunc {
		path := filepath.Join(cfg.StaticPath, name)
		return func(c *gin.Context) { c.File(path) }
	}
	r.GET("/", page("index.html"))
	r.GET("/sender", page("sender.html"))
	r.GET("/receiver", page("receiver.html"))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/ws/signal", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})

	api.GET("/status", func(c *gin.Context) {
		st, err := stats.Stats(c.Request.Context())
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("status")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"senders":   st.Senders,
			"receivers": st.Receivers,
			"tracks":    st.Tracks,
		})
	})

	return r
}
