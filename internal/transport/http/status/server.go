// Package status exposes read-only JSON views of the core's state. The
// textual dashboard that consumes them lives outside this module.
package status

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"keeper/internal/logger"
	"keeper/internal/portfolio"
	"keeper/internal/scheduler"
	"keeper/internal/store"
	"keeper/internal/store/auditlog"
	"keeper/internal/types"
)

type Server struct {
	addr   string
	router *gin.Engine
}

type ServerConfig struct {
	Addr      string
	Portfolio *portfolio.Service
	Positions store.PositionRepository
	Audit     *auditlog.Store
	Heartbeat *scheduler.Heartbeat
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Portfolio == nil || cfg.Positions == nil {
		return nil, errors.New("status server requires portfolio and positions")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/portfolio", func(c *gin.Context) {
		snap, err := cfg.Portfolio.Snapshot(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, snap)
	})
	api.GET("/positions", func(c *gin.Context) {
		status := types.PositionStatus(c.DefaultQuery("status", string(types.PositionOpen)))
		list, err := cfg.Positions.ListByStatus(c.Request.Context(), status)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"positions": list, "count": len(list)})
	})
	if cfg.Heartbeat != nil {
		api.GET("/tick/last", func(c *gin.Context) {
			c.JSON(http.StatusOK, cfg.Heartbeat.LastResult())
		})
	}
	if cfg.Audit != nil {
		api.GET("/audit/recent", func(c *gin.Context) {
			limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
			entries, err := cfg.Audit.ListRecent(c.Request.Context(), limit)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"entries": entries})
		})
	}

	return &Server{addr: cfg.Addr, router: router}, nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
