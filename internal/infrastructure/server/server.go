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
	"golang.org/x/sync/errgroup"

	api "github.com/GriffinCanCode/zentat/internal/api/http"
	"github.com/GriffinCanCode/zentat/internal/api/middleware"
	"github.com/GriffinCanCode/zentat/internal/dom"
	"github.com/GriffinCanCode/zentat/internal/infrastructure/config"
	"github.com/GriffinCanCode/zentat/internal/infrastructure/logging"
	"github.com/GriffinCanCode/zentat/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zentat/internal/rates"
	"github.com/GriffinCanCode/zentat/internal/session"
	"github.com/GriffinCanCode/zentat/internal/settings"
)

// breakerCooldown is how long a failing rate source is skipped.
const breakerCooldown = time.Minute

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	rates    *rates.Store
	settings *settings.Store
	sessions *session.Manager
	sources  []rates.Source
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
	unsub    func()
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize logger
	logCfg := logging.DefaultConfig()
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	if cfg.Logging.Level != "" {
		logCfg.Level = cfg.Logging.Level
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing zentat server",
		zap.String("port", cfg.Server.Port),
		zap.String("unit", cfg.Sync.Unit),
		zap.Strings("rate_sources", cfg.Rates.Sources),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	// Rate table, seeded from disk when available
	var initial rates.Table
	if cfg.Rates.File != "" {
		t, err := rates.LoadFile(cfg.Rates.File)
		switch {
		case err == nil:
			initial = t
			logger.Info("Loaded rates", zap.String("file", cfg.Rates.File), zap.Int("currencies", len(t.Rates)))
		case errors.Is(err, os.ErrNotExist):
			logger.Info("No rates file yet", zap.String("file", cfg.Rates.File))
		default:
			logger.Warn("Failed to load rates file", zap.Error(err))
		}
	}
	rateStore := rates.NewStore(initial).WithLogger(logger.Component("rates"))

	client := rates.NewClient(rates.ClientConfig{
		Timeout:   cfg.Rates.Timeout,
		UserAgent: rates.DefaultClientConfig().UserAgent,
	})
	sources, err := rates.NewSources(client, cfg.Rates.Sources...)
	if err != nil {
		return nil, err
	}
	sources = rates.Guard(sources, breakerCooldown, metrics)

	// Settings, persisted on change when a file is configured
	current := settings.Defaults()
	if cfg.Settings.File != "" {
		s, err := settings.LoadFile(cfg.Settings.File)
		switch {
		case err == nil:
			current = s
		case errors.Is(err, os.ErrNotExist):
			logger.Info("No settings file yet", zap.String("file", cfg.Settings.File))
		default:
			return nil, err
		}
	}
	settingStore := settings.NewStore(current)
	unsub := func() {}
	if path := cfg.Settings.File; path != "" {
		unsub = settingStore.Subscribe(func(s settings.Settings) {
			if err := settings.SaveFile(path, s); err != nil {
				logger.Error("Failed to save settings", zap.Error(err))
			}
		})
	}

	// Session manager
	sessCfg := session.DefaultConfig()
	sessCfg.MaxSessions = cfg.Session.Max
	sessCfg.FrameDelay = cfg.Sync.FrameDelay
	sessCfg.PollInterval = cfg.Sync.PollInterval
	sessCfg.MaxTextLength = cfg.Sync.MaxTextLength
	sessCfg.Unit = cfg.Sync.Unit
	sessCfg.Load = dom.LoadOptions{MaxBytes: cfg.HTML.MaxBytes, Sanitize: cfg.HTML.Sanitize}
	sessions := session.NewManager(rateStore, settingStore, sessCfg, logger.Component("session"), metrics)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger.Component("http")))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limit := middleware.DefaultRateLimitConfig()
		limit.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limit.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(limit))
	}

	handlers := api.NewHandlers(rateStore, settingStore, sessions, api.Options{
		Unit:        cfg.Sync.Unit,
		RatesMaxAge: cfg.Rates.MaxAge,
		Sources:     sources,
	}, metrics, logger.Component("api"))
	Routes(router, handlers, metrics)

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		rates:    rateStore,
		settings: settingStore,
		sessions: sessions,
		sources:  sources,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		unsub:    unsub,
	}, nil
}

// Routes registers the API on router.
func Routes(router *gin.Engine, h *api.Handlers, metrics *monitoring.Metrics) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	v1 := router.Group("/v1")
	{
		v1.POST("/convert", h.Convert)
		v1.POST("/parse", h.Parse)

		v1.GET("/rates", h.GetRates)
		v1.POST("/rates/refresh", h.RefreshRates)

		v1.GET("/settings", h.GetSettings)
		v1.PUT("/settings", h.UpdateSettings)
		v1.GET("/sites/allowed", h.SiteAllowed)

		v1.POST("/sessions", h.CreateSession)
		v1.GET("/sessions", h.ListSessions)
		v1.GET("/sessions/:id", h.GetSession)
		v1.POST("/sessions/:id/mutations", h.MutateSession)
		v1.POST("/sessions/:id/revert", h.RevertSession)
		v1.DELETE("/sessions/:id", h.DeleteSession)
	}

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/metrics/json", h.MetricsJSON)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP and keeps rates fresh until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if len(s.sources) > 0 {
		g.Go(func() error {
			s.refreshLoop(ctx)
			return nil
		})
	}
	return g.Wait()
}

// refreshLoop refreshes immediately when the table is stale, then every
// MaxAge.
func (s *Server) refreshLoop(ctx context.Context) {
	maxAge := s.config.Rates.MaxAge
	if maxAge <= 0 {
		maxAge = rates.DefaultMaxAge
	}
	if s.rates.Get().IsStale(time.Now(), maxAge) {
		s.refresh(ctx)
	}

	ticker := time.NewTicker(maxAge)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *Server) refresh(ctx context.Context) {
	t, err := s.rates.Refresh(ctx, s.sources...)
	if err != nil || s.config.Rates.File == "" {
		return
	}
	if err := rates.SaveFile(s.config.Rates.File, t); err != nil {
		s.logger.Warn("Failed to save rates", zap.Error(err))
	}
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")
	s.unsub()
	s.sessions.CloseAll()

	// Sync logger before exit
	_ = s.logger.Sync()
	return nil
}
