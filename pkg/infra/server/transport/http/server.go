// Package http provides the gin HTTP server.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/medbot/pkg/infra/middleware"
	"github.com/kart-io/medbot/pkg/infra/middleware/observability"
	"github.com/kart-io/medbot/pkg/infra/middleware/resilience"
	"github.com/kart-io/medbot/pkg/infra/server"
	mwopts "github.com/kart-io/medbot/pkg/options/middleware"
	options "github.com/kart-io/medbot/pkg/options/server/http"
	apierrors "github.com/kart-io/medbot/pkg/utils/errors"
	"github.com/kart-io/medbot/pkg/utils/response"
)

// Re-export types from options package for convenience
type (
	// Options contains HTTP server configuration.
	Options = options.Options
	// Option is a function that configures Options.
	Option = options.Option
)

// Re-export option functions
var (
	NewOptions = options.NewOptions
	WithAddr   = options.WithAddr
	WithMode   = options.WithMode
)

// Server is the HTTP server implementation.
type Server struct {
	opts     *options.Options
	engine   *gin.Engine
	server   *http.Server
	listener net.Listener
	errCh    chan error
	mu       sync.Mutex
}

// NewServer creates a new HTTP server with the given options.
// onPanic 可选，在 Recovery 中间件捕获 panic 后调用。
func NewServer(serverOpts *options.Options, middlewareOpts *mwopts.Options, onPanic resilience.PanicHandler) *Server {
	if serverOpts == nil {
		serverOpts = options.NewOptions()
	}
	if middlewareOpts == nil {
		middlewareOpts = mwopts.NewOptions()
	}

	gin.SetMode(serverOpts.Mode)

	// 创建 Gin 引擎（不使用默认中间件）
	engine := gin.New()
	engine.HandleMethodNotAllowed = false
	engine.NoRoute(func(c *gin.Context) {
		response.Fail(c, apierrors.ErrRouteNotFound)
	})

	s := &Server{
		opts:   serverOpts,
		engine: engine,
		errCh:  make(chan error, 1),
	}

	// 中间件必须在注册路由之前应用，子路由组才能继承
	s.applyMiddleware(middlewareOpts, onPanic)

	return s
}

// Name returns the server name.
func (s *Server) Name() string {
	return "http[gin]"
}

// Engine returns the underlying gin.Engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Handler returns the engine as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the bound address once started, otherwise the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.opts.Addr
}

// Start binds the listen address and serves in the background.
// Bind errors are returned directly; later serve errors arrive on Err.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return errors.New("http server already started")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return err
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- err
		}
	}()
	return nil
}

// Err implements server.Failer.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// applyMiddleware 按 Recovery → RequestID → Tracing → Logger 顺序注册中间件。
func (s *Server) applyMiddleware(opts *mwopts.Options, onPanic resilience.PanicHandler) {
	defaults := mwopts.NewOptions()
	if opts.Recovery == nil {
		opts.Recovery = defaults.Recovery
	}
	if opts.RequestID == nil {
		opts.RequestID = defaults.RequestID
	}
	if opts.Logger == nil {
		opts.Logger = defaults.Logger
	}
	if opts.Tracing == nil {
		opts.Tracing = defaults.Tracing
	}

	s.engine.Use(resilience.RecoveryWithOptions(*opts.Recovery, onPanic))
	s.engine.Use(middleware.RequestIDWithOptions(*opts.RequestID, nil))
	s.engine.Use(observability.Tracing(*opts.Tracing))
	s.engine.Use(observability.LoggerWithOptions(*opts.Logger))
}

// Stop stops the HTTP server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

var (
	_ server.Runnable = (*Server)(nil)
	_ server.Failer   = (*Server)(nil)
)
