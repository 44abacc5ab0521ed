// Package adminhttp exposes a small read-only admin surface over the
// running engine: open orders, the position book, realized PnL and the
// crash-recovery journal.
package adminhttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ordo/internal/engine"
	"ordo/internal/journal"
	"ordo/internal/logger"
	"ordo/internal/position"
)

// Server 提供最小化的只读 HTTP 服务。
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig 描述 admin HTTP 服务依赖。
type ServerConfig struct {
	Addr    string
	Engine  *engine.Engine
	Book    *position.Book
	Journal *journal.Journal // optional
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("admin http server requires the engine")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9992"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/orders/open", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"orders": cfg.Engine.OpenOrders()})
	})
	api.GET("/positions", func(c *gin.Context) {
		if cfg.Book == nil {
			c.JSON(http.StatusOK, gin.H{"positions": []any{}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"positions": cfg.Book.Snapshot()})
	})
	api.GET("/pnl", func(c *gin.Context) {
		pnl, fees := cfg.Engine.RealizedPnL()
		c.JSON(http.StatusOK, gin.H{"realized": pnl, "fees": fees})
	})
	api.GET("/journal", func(c *gin.Context) {
		if cfg.Journal == nil {
			c.JSON(http.StatusOK, gin.H{"entries": []any{}})
			return
		}
		entries, err := cfg.Journal.ListOpen(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries})
	})

	return &Server{addr: cfg.Addr, router: router}, nil
}

// requestLogger 记录接口调用，便于追踪。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, path, status, client, dur)
	}
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
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
