package http

import (
	stdhttp "net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/parleychat/parley-server/internal/config"
	"github.com/parleychat/parley-server/internal/core"
)

// NewServer builds the HTTP server: websocket endpoint, avatar API and
// static serving for the bundled web client. The websocket endpoint is
// mounted on a plain mux in front of gin: gin's response writer mangles the
// extension headers negotiated during the upgrade.
func NewServer(router *core.Router, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))

	engine.GET("/health", healthHandler)

	avatars := NewAvatarHandlers(router, cfg.AvatarDir, cfg.AvatarMaxBytes, logger)
	engine.POST("/api/avatar", avatars.Upload)
	engine.DELETE("/api/avatar", avatars.Remove)
	engine.Static("/avatars", cfg.AvatarDir)

	if cfg.StaticDir != "" {
		engine.Static("/static", cfg.StaticDir)
		engine.StaticFile("/", filepath.Join(cfg.StaticDir, "index.html"))
	}

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(router, logger))
	mux.Handle("/", engine)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
