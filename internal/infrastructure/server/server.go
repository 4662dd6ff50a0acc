package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/notebridge/internal/api/http"
	"github.com/GriffinCanCode/notebridge/internal/api/middleware"
	"github.com/GriffinCanCode/notebridge/internal/api/ws"
	"github.com/GriffinCanCode/notebridge/internal/bridge"
	"github.com/GriffinCanCode/notebridge/internal/editor"
	"github.com/GriffinCanCode/notebridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/notebridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/notebridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/notebridge/internal/settings"
	"github.com/GriffinCanCode/notebridge/internal/storage"
	"github.com/GriffinCanCode/notebridge/internal/webview"
)

const shutdownTimeout = 5 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	config   *config.Config
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	store    *storage.Store
	settings *settings.Service
	invoker  *bridge.Invoker
	commands *editor.Commands
	runtime  *webview.Runtime // Embedded mode only
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	return NewServerWithLogger(cfg, logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development))
}

// NewServerWithLogger creates a server that logs to logger
func NewServerWithLogger(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	platform, err := editor.ParsePlatform(cfg.Editor.Platform)
	if err != nil {
		return nil, err
	}

	logger.Info("Initializing notebridge",
		zap.String("port", cfg.Server.Port),
		zap.String("webview_mode", cfg.Webview.Mode),
		zap.String("platform", string(platform)),
		zap.Bool("dev_mode", cfg.Bridge.DevMode),
	)

	metrics := monitoring.NewMetrics()

	store, err := storage.Open(cfg.Storage.Path, logger.Logger)
	if err != nil {
		return nil, err
	}

	settingsService, err := openSettings(cfg, platform, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	invoker := bridge.NewInvoker(bridge.DefaultRegistry(), logger.Logger).WithMetrics(metrics)
	builder := bridge.NewBuilder(cfg.Bridge.DevMode)

	opts := editor.Options{
		Platform:         platform,
		FocusDelay:       cfg.Editor.FocusDelay,
		NativeFocusDelay: cfg.Editor.NativeFocusDelay,
		Tags:             store,
	}
	commands := editor.New(invoker, builder, opts, logger.Logger)

	s := &Server{
		config:   cfg,
		logger:   logger,
		metrics:  metrics,
		store:    store,
		settings: settingsService,
		invoker:  invoker,
		commands: commands,
	}

	if cfg.Webview.Mode == "embedded" {
		if err := s.startRuntime(); err != nil {
			store.Close()
			return nil, err
		}
	}

	s.router = s.routes()
	logger.Info("Server initialized successfully")
	return s, nil
}

func openSettings(cfg *config.Config, platform editor.Platform, store *storage.Store, logger *logging.Logger) (*settings.Service, error) {
	defaults := settings.Defaults()
	if cfg.Storage.SettingsDefaults != "" {
		loaded, err := settings.LoadDefaults(cfg.Storage.SettingsDefaults)
		if err != nil {
			return nil, err
		}
		defaults = loaded
	}

	svc := settings.NewService(store, settings.Options{
		Platform: platform,
		Defaults: defaults,
	}, logger.Logger)
	if _, err := svc.Init(); err != nil {
		return nil, fmt.Errorf("init settings: %w", err)
	}
	return svc, nil
}

func (s *Server) startRuntime() error {
	wcfg := webview.DefaultConfig()
	wcfg.Timeout = s.config.Webview.Timeout
	if s.config.Webview.Script != "" {
		script, err := os.ReadFile(s.config.Webview.Script)
		if err != nil {
			return fmt.Errorf("read webview script: %w", err)
		}
		wcfg.Bootstrap = string(script)
	}

	rt, err := webview.New(wcfg, s.invoker.Deliver, s.logger.Logger)
	if err != nil {
		return err
	}
	s.runtime = rt
	s.invoker.Attach(rt)
	s.logger.Info("Embedded web view attached", zap.String("script", s.config.Webview.Script))
	return nil
}

func (s *Server) routes() *gin.Engine {
	if !s.config.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(s.metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if s.config.RateLimit.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", s.config.RateLimit.RequestsPerSecond),
			zap.Int("burst", s.config.RateLimit.Burst),
			zap.Bool("global", s.config.RateLimit.Global),
		)
		limits := middleware.DefaultRateLimitConfig()
		limits.RequestsPerSecond = s.config.RateLimit.RequestsPerSecond
		limits.Burst = s.config.RateLimit.Burst
		if s.config.RateLimit.Global {
			router.Use(middleware.GlobalRateLimit(limits))
		} else {
			router.Use(middleware.RateLimit(limits))
		}
	}

	handlers := apihttp.NewHandlers(s.commands, s.settings, s.store, s.invoker, apihttp.Options{
		CallTimeout: s.config.Bridge.CallTimeout,
		AllowEval:   s.config.Bridge.DevMode,
	}, s.logger.Logger)
	handlers.Register(router)
	apihttp.NewMetricsAggregator(s.metrics, s.invoker).Register(router)

	if s.runtime == nil {
		router.GET("/webview", ws.NewHandler(s.invoker, s.metrics, s.logger.Logger).HandleConnection)
	}

	return router
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.router
}

// Invoker returns the bridge invoker
func (s *Server) Invoker() *bridge.Invoker {
	return s.invoker
}

// Run serves HTTP until ctx ends, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.config.Bridge.EvictAfter > 0 {
		go s.invoker.Sweep(runCtx, s.config.Bridge.EvictInterval, s.config.Bridge.EvictAfter)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	if s.runtime != nil {
		s.invoker.Detach(s.runtime)
		if err := s.runtime.Close(); err != nil {
			s.logger.Error("Failed to close web view", zap.Error(err))
		}
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("Failed to close storage", zap.Error(err))
		return fmt.Errorf("failed to close storage: %w", err)
	}

	// Sync logger before exit
	s.logger.Sync()
	return nil
}
