// Package admin exposes the endpoint's operational surface over HTTP:
// liveness, readiness, Prometheus metrics and a live session snapshot.
package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/soberlab/somersaultd/internal/ecu"
	"github.com/soberlab/somersaultd/internal/observability"
)

// SessionSource is the read side of the endpoint the admin surface
// reports on.
type SessionSource interface {
	SessionSnapshot() ecu.SessionSnapshot
}

// Server serves the admin routes for one endpoint.
type Server struct {
	Name    string    `json:"name"`
	Addr    string    `json:"addr"`
	Started time.Time `json:"started"`

	source SessionSource
	router *gin.Engine
}

func New(name, addr string, source SessionSource, corsOrigins []string) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		Name:    name,
		Addr:    addr,
		Started: time.Now(),
		source:  source,
		router:  r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"uptime":   time.Since(s.Started).String(),
			"endpoint": s.Name,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":    true,
			"uptime":   time.Since(s.Started).String(),
			"endpoint": s.Name,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/session", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.source.SessionSnapshot())
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully. A
// cancelled ctx is a clean exit, not an error.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.Addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
