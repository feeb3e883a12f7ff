// Package server wires the feature handlers into one HTTP service.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/apikeys"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/auth"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/canvases"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/config"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/importexport"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/live"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/logging"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/remotesync"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/session"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/share"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/store"
)

const shutdownTimeout = 10 * time.Second

// Server is the assembled HTTP service.
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	sessions *session.Registry
	engine   *gin.Engine
}

// New builds the router. The database must already be migrated.
func New(cfg *config.Config, db *gorm.DB, logger *zap.Logger) (*Server, error) {
	tokens, err := auth.NewTokens(cfg.Auth)
	if err != nil {
		return nil, err
	}

	adapter := remotesync.New(store.NewGormStore(db), logger)
	sessions := session.NewRegistry(adapter)

	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"service": "bookcanvas",
			})
		})

		// Auth routes (public)
		auth.NewHandler(db, tokens).RegisterRoutes(api.Group("/auth"))

		// API keys are managed with a JWT session only
		apikeys.NewHandler(db).RegisterRoutes(api.Group("", auth.AuthMiddleware(tokens)))

		// Everything else accepts a JWT or an API key
		protected := api.Group("", apikeys.CombinedAuthMiddleware(db, tokens))
		canvases.NewHandler(sessions, logger).RegisterRoutes(protected)
		importexport.NewHandler(sessions, logger).RegisterRoutes(protected)

		shareHandler := share.NewHandler(share.NewGate(adapter, cfg.Server.BaseURL), sessions)
		shareHandler.RegisterRoutes(protected)
		shareHandler.RegisterPublicRoutes(r)

		liveHandler := live.NewHandler(sessions, logger)
		liveHandler.RegisterRoutes(protected)
		liveHandler.RegisterPublicRoutes(r)
	}

	serveFrontend(r, logger, "./web/dist")

	return &Server{cfg: cfg, logger: logger, sessions: sessions, engine: r}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down and drains pending
// auto-saves.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Server.Port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting bookcanvas server", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.sessions.Wait()
	return err
}

// serveFrontend serves the built single-page app when it exists.
func serveFrontend(r *gin.Engine, logger *zap.Logger, dist string) {
	if _, err := os.Stat(dist); err != nil {
		logger.Info("no frontend build found, API only mode", zap.String("path", dist))
		return
	}

	r.Static("/assets", filepath.Join(dist, "assets"))
	r.StaticFile("/favicon.ico", filepath.Join(dist, "favicon.ico"))

	indexHTML := filepath.Join(dist, "index.html")
	index := func(c *gin.Context) { c.File(indexHTML) }
	for _, route := range []string{"/", "/login", "/register", "/settings"} {
		r.GET(route, index)
	}
	r.GET("/canvases/*path", index)

	logger.Info("serving frontend", zap.String("path", dist))
}
