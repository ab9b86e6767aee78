// Package admin 提供最小化的运维 HTTP 服务：状态查询、审计日志、
// 以及熔断器的人工复位入口。
package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"helmsman/internal/logger"
	"helmsman/internal/metrics"
	"helmsman/internal/risk"
	"helmsman/internal/state"
)

// Server hosts the operator API. Resetting the breaker lives here and only
// here: resumption after a risk halt must be a deliberate, auditable act.
type Server struct {
	addr   string
	router *gin.Engine
}

type ServerConfig struct {
	Addr      string
	Store     state.Store
	Validator *risk.Validator
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil || cfg.Validator == nil {
		return nil, errors.New("admin server requires store and validator")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9985"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api/admin")
	registerStateRoutes(api, cfg.Store)
	registerBreakerRoutes(api, cfg.Store, cfg.Validator)
	registerChartRoutes(router, cfg.Validator)

	return &Server{addr: cfg.Addr, router: router}, nil
}

// Start blocks until ctx is canceled, then shuts the listener down.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("admin: listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("admin: %s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Truncate(time.Millisecond))
	}
}

func registerStateRoutes(g *gin.RouterGroup, store state.Store) {
	g.GET("/agents", func(c *gin.Context) {
		agents, err := store.ListAgents(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"agents": agents})
	})
	g.GET("/agents/:id/decisions", func(c *gin.Context) {
		limit := 50
		if raw := c.Query("limit"); raw != "" {
			if _, err := fmt.Sscanf(raw, "%d", &limit); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
				return
			}
		}
		recs, err := store.RecentAudits(c.Request.Context(), c.Param("id"), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"decisions": recs})
	})
}

func registerBreakerRoutes(g *gin.RouterGroup, store state.Store, validator *risk.Validator) {
	g.GET("/breaker", func(c *gin.Context) {
		c.JSON(http.StatusOK, validator.Breaker().Snapshot())
	})
	g.POST("/breaker/reset", func(c *gin.Context) {
		snap := validator.Breaker().Snapshot()
		validator.Breaker().Reset()
		if err := validator.PersistBreaker(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		metrics.BreakerTripped.Set(0)
		logger.Warnf("admin: breaker reset by operator (was tripped=%v reason=%q)", snap.Tripped, snap.Reason)
		c.JSON(http.StatusOK, gin.H{"reset": true, "previous": snap})
	})
}
