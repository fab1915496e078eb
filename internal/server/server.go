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

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/api/middleware"
	fshttp "github.com/GriffinCanCode/AgentOS/deskfs/internal/http"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/logging"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/vfs"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/ws"
)

const readHeaderTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	fs         *vfs.Manager
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return New(ctx, cfg, logger)
}

// New creates a server that logs through logger
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Server, error) {
	logger.Info("Initializing deskfs server",
		zap.String("port", cfg.Server.Port),
		zap.String("lower", cfg.Storage.Lower),
		zap.Bool("persistent", cfg.Storage.DataDir != ""),
	)

	metrics := monitoring.NewMetrics()

	base, err := openBase(ctx, cfg.Storage, logger.Component("storage"))
	if err != nil {
		return nil, err
	}

	fs, err := vfs.New(ctx, base, vfs.Options{
		TempPath:        cfg.VFS.TempPath,
		MaxCollisions:   cfg.VFS.MaxCollisions,
		PinnedMounts:    cfg.VFS.PinnedMounts,
		SeedDirectories: paths.StandardDirectories(),
		Logger:          logger.Component("vfs"),
		Metrics:         metrics,
	})
	if err != nil {
		_ = base.Close()
		return nil, fmt.Errorf("failed to initialize file system: %w", err)
	}
	fs.Start(context.WithoutCancel(ctx))

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.Component("http")))
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.CORSConfigFor(cfg.CORS.AllowOrigins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := fshttp.NewHandlers(fs, metrics, logger.Component("handlers"))
	handlers.Register(router)

	wsHandler := ws.NewHandler(fs, metrics, logger.Component("ws")).
		WithAllowedOrigins(cfg.CORS.AllowOrigins)
	router.GET("/stream", wsHandler.HandleConnection)

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		fs:      fs,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// openBase builds the overlay the manager sits on. The upper layer is
// badger when a data directory is configured and memory otherwise.
func openBase(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*storage.Overlay, error) {
	var upper storage.Writable
	if cfg.DataDir != "" {
		db, err := storage.OpenBadger(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open data dir: %w", err)
		}
		upper = db
	} else {
		upper = storage.NewMemory()
	}

	lower, err := openLower(ctx, cfg)
	if err != nil {
		closeStore(upper)
		return nil, err
	}

	overlay, err := storage.OpenOverlay(ctx, upper, lower)
	if err != nil {
		closeStore(upper)
		closeStore(lower)
		return nil, err
	}

	logger.Info("Base store ready",
		zap.String("data_dir", cfg.DataDir),
		zap.String("lower", cfg.Lower),
		zap.String("source", cfg.LowerSource),
	)
	return overlay, nil
}

func openLower(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Lower {
	case config.LowerDir:
		dir, err := storage.OpenHostDir(ctx, cfg.LowerSource)
		if err != nil {
			return nil, fmt.Errorf("failed to index %s: %w", cfg.LowerSource, err)
		}
		return dir, nil
	case config.LowerHTTP:
		tree, err := storage.OpenHTTP(ctx, storage.HTTPConfig{
			BaseURL:    cfg.LowerSource,
			IndexPath:  cfg.IndexPath,
			Timeout:    cfg.HTTPTimeout,
			RetryCount: cfg.HTTPRetries,

			FailureThreshold: cfg.BreakerThreshold,
			Cooldown:         cfg.BreakerCooldown,
		})
		if err != nil {
			return nil, err
		}
		return tree, nil
	default:
		return nil, nil
	}
}

func closeStore(s storage.Store) {
	if closer, ok := s.(storage.Closer); ok {
		_ = closer.Close()
	}
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// FS returns the file system manager
func (s *Server) FS() *vfs.Manager {
	return s.fs
}

// Run serves HTTP until Shutdown is called
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP connections, then stops the file system manager
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
		errs = append(errs, err)
	}
	if err := s.fs.Close(); err != nil {
		s.logger.Error("Failed to close file system", zap.Error(err))
		errs = append(errs, err)
	}

	_ = s.logger.Sync()
	return errors.Join(errs...)
}
