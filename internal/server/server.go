package server

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/gridcalc/internal/config"
	"github.com/roach88/gridcalc/internal/spreadsheet"
)

// APIVersion prefixes every JSON route: /api/v1/...
const APIVersion = "v1"

const shutdownTimeout = 5 * time.Second

// Server serves one sheet registry.
type Server struct {
	registry *spreadsheet.Registry
	view     config.ViewConfig
	router   *gin.Engine
}

// New creates a server over registry. view sizes the HTML table.
func New(registry *spreadsheet.Registry, view config.ViewConfig) *Server {
	s := &Server{registry: registry, view: view}
	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.SetHTMLTemplate(template.Must(template.New("").Funcs(viewFuncs).ParseFS(templateFS, "templates/*.html")))

	api := router.Group("/api/" + APIVersion)
	api.GET("/sheets", s.listSheets)
	api.GET("/sheets/:sheet", s.getSheet)
	api.PUT("/sheets/:sheet", s.replaceSheet)
	api.PATCH("/sheets/:sheet", s.updateSheet)
	api.DELETE("/sheets/:sheet", s.clearSheet)
	api.POST("/sheets/:sheet/undo", s.undo)
	api.GET("/sheets/:sheet/cells/:cell", s.getCell)
	api.PUT("/sheets/:sheet/cells/:cell", s.setCell)
	api.PATCH("/sheets/:sheet/cells/:cell", s.setCell)
	api.DELETE("/sheets/:sheet/cells/:cell", s.deleteCell)
	api.POST("/sheets/:sheet/cells/:cell/copy", s.copyCell)

	router.GET("/", s.index)
	router.POST("/", s.openSheet)
	router.GET("/ss/:sheet", s.viewSheet)
	router.POST("/ss/:sheet", s.actOnSheet)

	router.GET("/healthcheck", func(c *gin.Context) {
		c.String(http.StatusOK, "health")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, CodeNotFound, c.Request.Method+" not supported for "+c.Request.URL.Path)
	})

	return router
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("server stopping: context cancelled")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		slog.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
