package server

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/sentinelid/backend/internal/api/http"
	"github.com/sentinelid/backend/internal/api/middleware"
	"github.com/sentinelid/backend/internal/bridge"
	"github.com/sentinelid/backend/internal/browser"
	"github.com/sentinelid/backend/internal/config"
	"github.com/sentinelid/backend/internal/janitor"
	"github.com/sentinelid/backend/internal/logging"
	"github.com/sentinelid/backend/internal/monitoring"
	"github.com/sentinelid/backend/internal/rtc"
	"github.com/sentinelid/backend/internal/session"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	registry *session.Registry
	saved    *session.SavedStore
	browser  *browser.Manager
	peers    *rtc.Manager
	janitor  *janitor.Janitor
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics

	cancel context.CancelFunc
}

// New creates a server instance and starts its background workers: the
// execution bridge worker and the janitor sweep.
func New(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing browser session service",
		zap.String("port", cfg.Server.Port),
		zap.Int("viewport_width", cfg.Browser.ViewportWidth),
		zap.Int("viewport_height", cfg.Browser.ViewportHeight),
		zap.Int("fps", cfg.Stream.FPS),
	)

	metrics := monitoring.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())

	// The bridge worker must be running before any engine call.
	engineBridge := bridge.New(cfg.Bridge.CallTimeout, logger)
	engineBridge.Start(ctx)

	registry := session.NewRegistry()
	saved := session.NewSavedStore()
	browserManager := browser.NewManager(cfg.Browser, engineBridge, registry, saved, logger)

	protocol := rtc.NewProtocol(registry, engineBridge, cfg.Browser, metrics, logger)
	peers := rtc.NewManager(registry, engineBridge, protocol, cfg.Stream, cfg.Browser, metrics, logger)

	jan := janitor.New(cfg.Janitor, registry, browserManager, peers, metrics, logger)
	go jan.Run(ctx)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(cfg.RateLimit))
	}

	handlers := apihttp.NewHandlers(browserManager, peers, registry, saved, metrics, logger)
	handlers.Register(router)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		registry: registry,
		saved:    saved,
		browser:  browserManager,
		peers:    peers,
		janitor:  jan,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		cancel:   cancel,
	}, nil
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close gracefully shuts down the server: peer connections first so no
// streamer captures from a page that is being torn down, then every
// live session.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	s.peers.Close()

	ctx := context.Background()
	for _, sess := range s.registry.List() {
		if err := s.browser.Destroy(ctx, sess.ID); err != nil {
			s.logger.Warn("failed to destroy session during shutdown",
				zap.String("session_id", sess.ID),
				zap.Error(err))
		}
	}

	// Stops the bridge worker and the janitor.
	s.cancel()

	s.logger.Sync()
	return nil
}
