// Package handlers serves health, status and metrics over HTTP. The server
// is itself a lifecycle component so it comes up and goes down with the
// rest of the process.
package handlers

import (
	"context"
	"net"
	"net/http"

	"github.com/dkhoanguyen/dvrk-console/pkg/component"
	"github.com/dkhoanguyen/dvrk-console/pkg/console"
	"github.com/dkhoanguyen/dvrk-console/pkg/handlers/health"
	v1console "github.com/dkhoanguyen/dvrk-console/pkg/handlers/v1/console"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const ServerName = "healthServer"

type Server struct {
	addr     string
	logger   *zap.Logger
	srv      *http.Server
	listener net.Listener
	started  bool
	served   chan struct{}
}

func NewRouter(registry *component.Registry, c *console.Console, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health/liveness", health.LivenessGet)
	router.GET("/health/components", health.MakeComponentsGet(registry))
	router.GET("/v1/console/arms", v1console.MakeArmsGet(c))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	return router
}

func NewServer(addr string, router http.Handler, logger *zap.Logger) *Server {
	return &Server{
		addr:   addr,
		logger: logger,
		srv:    &http.Server{Handler: router},
		served: make(chan struct{}),
	}
}

func (s *Server) Name() string { return ServerName }

// Addr returns the bound address once the server is created.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Create binds the listener so that a busy port fails the create barrier.
func (s *Server) Create(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", s.addr)
	}
	s.listener = listener
	return nil
}

func (s *Server) Start(ctx context.Context) error {
	s.started = true
	go func() {
		defer close(s.served)
		if err := s.srv.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Health server stopped", zap.Error(err))
		}
	}()
	s.logger.Info("Health server listening", zap.String("addr", s.Addr()))
	return nil
}

func (s *Server) Kill(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	if !s.started {
		return s.listener.Close()
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) Cleanup() error { return nil }
