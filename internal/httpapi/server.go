// Package httpapi serves the single-page board, its JSON API and a live
// snapshot feed over server-sent events.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"taskledger/internal/repository"
	"taskledger/internal/service"
)

// Deps are the collaborators the server drives.
type Deps struct {
	Store   *repository.Store
	Modules *service.ModuleService
	Tasks   *service.TaskService
	Summary *service.SummaryService
	DistDir string
	Log     zerolog.Logger
}

// Server wraps the echo instance.
type Server struct {
	echo    *echo.Echo
	store   *repository.Store
	modules *service.ModuleService
	tasks   *service.TaskService
	summary *service.SummaryService
	dist    string
	log     zerolog.Logger
	now     func() time.Time
}

// New builds the server. It fails when DistDir has no index.html, since the
// SPA fallback would have nothing to serve.
func New(deps Deps) (*Server, error) {
	dist, err := filepath.Abs(deps.DistDir)
	if err != nil {
		return nil, fmt.Errorf("resolve dist dir: %w", err)
	}
	if info, err := os.Stat(filepath.Join(dist, "index.html")); err != nil || info.IsDir() {
		return nil, fmt.Errorf("missing %s, build the frontend first", filepath.Join(dist, "index.html"))
	}

	s := &Server{
		echo:    echo.New(),
		store:   deps.Store,
		modules: deps.Modules,
		tasks:   deps.Tasks,
		summary: deps.Summary,
		dist:    dist,
		log:     deps.Log,
		now:     time.Now,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			evt := s.log.Debug()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				evt = s.log.Error().Err(v.Error)
			}
			evt.Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).Dur("latency", v.Latency).Msg("request")
			return nil
		},
	}))
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	api := s.echo.Group("/api")
	api.GET("/modules", s.listModules)
	api.POST("/modules", s.createModule)
	api.PUT("/modules/order", s.reorderModules)
	api.PATCH("/modules/:id", s.updateModule)
	api.DELETE("/modules/:id", s.deleteModule)
	api.GET("/modules/:id/tasks", s.listModuleTasks)
	api.POST("/modules/:id/tasks", s.createTask)
	api.PATCH("/tasks/:id", s.updateTask)
	api.DELETE("/tasks/:id", s.deleteTask)
	api.PUT("/tasks/:id/completion", s.setCompletion)
	api.POST("/tasks/move", s.moveTask)
	api.GET("/summary", s.getSummary)
	api.GET("/live", s.live)
	api.Any("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
	})

	s.echo.GET("/*", s.static)
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()
	s.log.Info().Str("addr", addr).Str("dist", s.dist).Msg("http server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}
