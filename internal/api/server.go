package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oceanobs/buoywatch/internal/store"
)

// Server exposes the read-side query operations over HTTP for the dashboard.
// It never touches the ingestion path; stale-but-present data is served even
// when the pipeline is failing.
type Server struct {
	store  *store.Store
	addr   string
	engine *gin.Engine
}

func NewServer(st *store.Store, addr string) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	s := &Server{store: st, addr: addr, engine: engine}
	s.registerRoutes()
	return s
}

// Engine exposes the underlying gin engine for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/api/v1")
	v1.GET("/stations", s.handleStations)
	v1.GET("/stations/bounds", s.handleStationsInBounds)
	v1.GET("/stations/:id/series", s.handleStationSeries)
	v1.GET("/status", s.handleStatus)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
