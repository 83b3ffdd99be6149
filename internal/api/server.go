// Package api exposes the strategy instance over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sundae-strategies/internal/engine"
	"sundae-strategies/internal/observability"
)

const defaultAddr = ":8080"

// Server routes inbound calls to a strategy handler.
type Server struct {
	addr    string
	router  *gin.Engine
	handler engine.Handler
	config  []byte
	log     *slog.Logger
}

// ServerConfig describes the server dependencies.
type ServerConfig struct {
	Addr    string
	Handler engine.Handler
	// RawConfig is passed to every call as the strategy configuration.
	RawConfig []byte
	// Metrics backs GET /metrics. Nil serves the default registry.
	Metrics http.Handler
	Logger  *slog.Logger
}

// NewServer builds the router.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Handler == nil {
		return nil, errors.New("api server requires a handler")
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.Handler()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		addr:    cfg.Addr,
		router:  router,
		handler: cfg.Handler,
		config:  cfg.RawConfig,
		log:     cfg.Logger,
	}
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(cfg.Metrics))
	router.GET("/orders", s.handleOrders)
	router.POST("/call/:method", s.handleCall)

	return s, nil
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

func (s *Server) handleOrders(c *gin.Context) {
	s.dispatch(c, engine.MethodListOrders, nil)
}

func (s *Server) handleCall(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.dispatch(c, c.Param("method"), body)
}

func (s *Server) dispatch(c *gin.Context, method string, params []byte) {
	if len(params) == 0 {
		params = nil
	}
	resp, err := s.handler.Handle(c.Request.Context(), s.config, engine.CallEvent(method, params))
	switch {
	case errors.Is(err, engine.ErrUnknownMethod):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, engine.ErrInvalidConfig):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.log.Error("call failed", "method", method, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if resp.Body == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, resp.Body)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		s.log.Debug("http request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"ip", c.ClientIP(),
			"dur", time.Since(start),
		)
	}
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
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
