package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gosurv/internal"
)

// Server exposes the statistics handler over HTTP
type Server struct {
	addr      string
	handler   *StatisticsHandler
	logger    *internal.Logger
	server    *http.Server
	startTime time.Time
}

// NewServer creates a new HTTP API server
func NewServer(addr string, handler *StatisticsHandler, logger *internal.Logger) *Server {
	if addr == "" {
		addr = "0.0.0.0:8080"
	}
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Server{
		addr:    addr,
		handler: handler,
		logger:  logger,
	}
}

// Router builds the gin engine with all routes and middleware
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(s.logger))

	r.GET("/health", s.handleHealth)
	v1 := r.Group("/v1")
	v1.POST("/survival/statistics", s.handler.CalculateStatistics)

	return r
}

// Start begins serving HTTP requests in the background
func (s *Server) Start() error {
	s.server = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.startTime = time.Now()
	s.logger.Info("Listening on %s", listener.Addr())

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server stopped: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
	})
}
