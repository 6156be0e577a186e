package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"
	"google.golang.org/grpc"

	apihttp "github.com/GriffinCanCode/AgentOS/pipefs/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/api/ws"
	pipegrpc "github.com/GriffinCanCode/AgentOS/pipefs/internal/grpc"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/pipefs"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/providers/pipe"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/service"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/vfs"
)

// ShutdownTimeout bounds the graceful part of shutdown.
const ShutdownTimeout = 10 * time.Second

// Server wraps the HTTP and gRPC servers and their dependencies
type Server struct {
	config   *config.Config
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
	fs       *pipefs.FS
	vfs      *vfs.VFS
	registry *service.Registry
	router   *gin.Engine
	grpc     *grpc.Server
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing pipefs server",
		zap.String("addr", cfg.Server.Addr()),
		zap.Bool("grpc", cfg.Server.GRPCEnabled),
		zap.Int("max_pipes", cfg.PipeFS.MaxPipes),
		zap.Int("buffer_size", cfg.PipeFS.BufferSize),
	)

	// Metrics first, the filesystem reports to them.
	metrics := monitoring.NewMetrics()
	tracer := tracing.New("pipefs", logger.Named("trace").Logger)

	fs, err := pipefs.New(cfg.PipeFS.PipeFSOptions(),
		pipefs.WithLogger(logger.Named("pipefs").Logger),
		pipefs.WithObserver(metrics),
	)
	if err != nil {
		tracer.Close()
		return nil, err
	}
	metrics.Watch(fs)

	v := vfs.New(cfg.VFS.VFSOptions(), logger.Named("vfs").Logger)
	if err := v.Mount(pipefs.VolumeName, vfs.PipeVolume(fs)); err != nil {
		tracer.Close()
		return nil, err
	}

	registry := service.NewRegistry(
		service.WithLogger(logger.Named("registry").Logger),
		service.WithMetrics(metrics),
	)
	if err := registry.Register(pipe.NewProvider(v, fs, logger.Named("provider").Logger)); err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to register pipe provider: %w", err)
	}

	s := &Server{
		config:   cfg,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		fs:       fs,
		vfs:      v,
		registry: registry,
	}
	s.router = s.setupRouter()

	if cfg.Server.GRPCEnabled {
		s.grpc = grpc.NewServer(grpc.ChainUnaryInterceptor(tracing.GRPCUnaryInterceptor(tracer)))
		pipegrpc.NewServer(registry, logger.Named("grpc").Logger).Register(s.grpc)
	}

	logger.Info("Server initialized successfully")
	return s, nil
}

func (s *Server) setupRouter() *gin.Engine {
	if !s.config.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(s.tracer))
	router.Use(monitoring.Middleware(s.metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if rl := s.config.RateLimit; rl.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", rl.RequestsPerSecond),
			zap.Int("burst", rl.Burst),
		)
		limits := middleware.DefaultRateLimitConfig()
		limits.RequestsPerSecond = rl.RequestsPerSecond
		limits.Burst = rl.Burst
		router.Use(middleware.RateLimit(limits))
	}

	log := s.logger.Named("http").Logger
	handlers := apihttp.NewHandlers(s.fs, s.vfs, s.registry, s.metrics, log, apihttp.DefaultOptions())
	handlers.Routes(router)

	wsHandler := ws.NewHandler(s.vfs, s.metrics, s.logger.Named("ws").Logger, ws.DefaultOptions())
	router.GET("/pipes/:name/stream", wsHandler.HandleConnection)

	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	return router
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// FS returns the served filesystem.
func (s *Server) FS() *pipefs.FS {
	return s.fs
}

// Run listens on the configured addresses and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	httpLis, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.Addr(), err)
	}

	var grpcLis net.Listener
	if s.grpc != nil {
		grpcLis, err = net.Listen("tcp", s.config.Server.GRPCAddr())
		if err != nil {
			_ = httpLis.Close()
			return fmt.Errorf("failed to listen on %s: %w", s.config.Server.GRPCAddr(), err)
		}
	}
	return s.Serve(ctx, httpLis, grpcLis)
}

// Serve serves HTTP on httpLis and, when gRPC is enabled, gRPC on
// grpcLis until ctx is done, then shuts both down.
func (s *Server) Serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Every blocked transfer pins a connection.
	if limit := s.config.Server.MaxConnections; limit > 0 {
		httpLis = netutil.LimitListener(httpLis, limit)
	}

	errCh := make(chan error, 2)
	s.logger.Info("Starting HTTP server",
		zap.String("addr", httpLis.Addr().String()),
		zap.Int("max_connections", s.config.Server.MaxConnections),
	)
	go func() {
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if s.grpc != nil && grpcLis != nil {
		s.logger.Info("Starting gRPC server", zap.String("addr", grpcLis.Addr().String()))
		go func() {
			if err := s.grpc.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		s.logger.Error("Server failed", zap.Error(serveErr))
	}

	s.shutdown(httpServer)
	return serveErr
}

// shutdown removes every pipe so blocked transfers return, then stops
// both servers.
func (s *Server) shutdown(httpServer *http.Server) {
	s.logger.Info("Shutting down server...")

	for _, info := range s.fs.List() {
		if err := s.fs.Remove(info.Name); err != nil && !errors.Is(err, pipefs.ErrNoSuchPipe) {
			s.logger.Warn("Failed to remove pipe", zap.String("pipe", info.Name), zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("HTTP shutdown incomplete", zap.Error(err))
		_ = httpServer.Close()
	}

	if s.grpc != nil {
		stopped := make(chan struct{})
		go func() {
			s.grpc.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			s.grpc.Stop()
		}
	}
}

// Close releases the tracer and flushes the logger.
func (s *Server) Close() error {
	s.tracer.Close()
	_ = s.fs.Unmount()
	return s.logger.Sync()
}
