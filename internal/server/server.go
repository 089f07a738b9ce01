// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/voltswap/voltswap/internal/auth"
	"github.com/voltswap/voltswap/internal/backend"
	"github.com/voltswap/voltswap/internal/battery"
	"github.com/voltswap/voltswap/internal/checkout"
	"github.com/voltswap/voltswap/internal/clientstate"
	"github.com/voltswap/voltswap/internal/config"
	"github.com/voltswap/voltswap/internal/dashboard"
	"github.com/voltswap/voltswap/internal/health"
	"github.com/voltswap/voltswap/internal/logging"
	"github.com/voltswap/voltswap/internal/metrics"
	"github.com/voltswap/voltswap/internal/packages"
	"github.com/voltswap/voltswap/internal/ratelimit"
	"github.com/voltswap/voltswap/internal/realtime"
	"github.com/voltswap/voltswap/internal/receipts"
	"github.com/voltswap/voltswap/internal/security"
	"github.com/voltswap/voltswap/internal/station"
	"github.com/voltswap/voltswap/internal/traces"
	"github.com/voltswap/voltswap/internal/transactions"
	"github.com/voltswap/voltswap/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg          *config.Config
	backend      *backend.Client
	state        clientstate.Store
	reconciler   *checkout.Reconciler
	packagesSvc  *packages.Service
	batterySvc   *battery.Service
	stationSvc   *station.Service
	txSvc        *transactions.Service
	dashboardSvc *dashboard.Service
	receiptsSvc  *receipts.Service
	realtimeHub  *realtime.Hub
	rateLimiter  *ratelimit.Limiter
	checks       *health.Registry
	db           *sql.DB // nil if using in-memory
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	stopTraces   func(context.Context) error
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithBackend sets a custom station backend client (for testing)
func WithBackend(client *backend.Client) Option {
	return func(s *Server) {
		s.backend = client
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
		checks: health.NewRegistry(),
	}

	// Apply options first (may set backend/logger)
	for _, opt := range opts {
		opt(s)
	}

	// Context for initialization
	ctx := context.Background()

	if s.backend == nil {
		s.backend = backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)
	}

	// Realtime hub for WebSocket streaming; services publish events through it
	s.realtimeHub = realtime.NewHub(s.logger)

	// Initialize storage (Postgres if DATABASE_URL set, otherwise in-memory)
	var (
		returnStore  battery.ReturnStore
		stationStore station.Store
		txStore      transactions.Store
		receiptStore receipts.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		// Test connection
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		stateStore := clientstate.NewPostgresStore(db)
		if err := stateStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate client state store", "error", err)
		}
		s.state = stateStore

		pgReturns := battery.NewPostgresReturnStore(db)
		if err := pgReturns.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate battery return store", "error", err)
		}
		returnStore = pgReturns

		pgStations := station.NewPostgresStore(db)
		if err := pgStations.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate station store", "error", err)
		}
		stationStore = pgStations

		pgTxs := transactions.NewPostgresStore(db)
		if err := pgTxs.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate transaction store", "error", err)
		}
		txStore = pgTxs

		pgReceipts := receipts.NewPostgresStore(db)
		if err := pgReceipts.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate receipt store", "error", err)
		}
		receiptStore = pgReceipts
	} else {
		s.logger.Info("using in-memory storage (data will not persist)")
		s.state = clientstate.NewMemoryStore()
		returnStore = battery.NewMemoryReturnStore()
		stationStore = station.NewMemoryStore()
		txStore = transactions.NewMemoryStore()
		receiptStore = receipts.NewMemoryStore()
	}

	// Domain services. The backend client doubles as payment executor,
	// package activator and battery provider.
	s.receiptsSvc = receipts.NewService(receiptStore, receipts.NewSigner(cfg.ReceiptSecret))
	if cfg.ReceiptSecret == "" {
		s.logger.Warn("RECEIPT_SECRET not set, receipt signing disabled")
	}
	s.reconciler = checkout.NewReconciler(s.backend, s.backend, s.state).
		WithLogger(s.logger).
		WithEvents(s.realtimeHub).
		WithReceipts(s.receiptsSvc)
	s.packagesSvc = packages.NewService(s.backend, s.state, cfg.PaymentReturnURL, cfg.PaymentCancelURL).WithLogger(s.logger)
	s.batterySvc = battery.NewService(s.backend, returnStore, s.realtimeHub).WithLogger(s.logger)
	s.stationSvc = station.NewService(stationStore, s.realtimeHub).WithLogger(s.logger)
	s.txSvc = transactions.NewService(txStore, s.realtimeHub).
		WithLogger(s.logger).
		WithReceipts(s.receiptsSvc)
	s.dashboardSvc = dashboard.NewService(txStore, s.backend).WithLogger(s.logger)

	// Health checks
	s.checks.Register("backend", func(ctx context.Context) health.Status {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.backend.Ping(ctx); err != nil {
			return health.Status{Name: "backend", Healthy: false, Detail: err.Error()}
		}
		return health.Status{Name: "backend", Healthy: true}
	})
	if s.db != nil {
		s.checks.Register("database", func(ctx context.Context) health.Status {
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := s.db.PingContext(ctx); err != nil {
				return health.Status{Name: "database", Healthy: false, Detail: err.Error()}
			}
			return health.Status{Name: "database", Healthy: true}
		})
	}

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS
	s.router.Use(security.CORSMiddleware(s.cfg.AllowedOrigins))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	rlCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitRPS > 0 {
		rlCfg.RequestsPerMinute = s.cfg.RateLimitRPS * 60
		rlCfg.BurstSize = s.cfg.RateLimitRPS
	}
	s.rateLimiter = ratelimit.New(rlCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// WebSocket for real-time streaming
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	// API info
	s.router.GET("/api", s.infoHandler)

	// V1 API group. All routes resolve the caller's session (when present)
	// from the X-Client-ID header.
	v1 := s.router.Group("/v1")
	v1.Use(auth.Middleware(s.state))

	// PUBLIC ROUTES (browsing packages needs no session)
	packagesHandler := packages.NewHandler(s.packagesSvc)
	packagesHandler.RegisterRoutes(v1)

	// Checkout completion requires a client ID but not a session; the
	// gateway redirect may land before login state is re-established.
	checkoutHandler := checkout.NewHandler(s.reconciler)
	checkoutHandler.RegisterRoutes(v1)

	// PROTECTED ROUTES (require an authenticated session)
	protected := v1.Group("")
	protected.Use(auth.RequireSession())
	{
		packagesHandler.RegisterProtectedRoutes(protected)
		battery.NewHandler(s.batterySvc).RegisterProtectedRoutes(protected)
		station.NewHandler(s.stationSvc).RegisterProtectedRoutes(protected)
		transactions.NewHandler(s.txSvc).RegisterProtectedRoutes(protected)
		dashboard.NewHandler(s.dashboardSvc).RegisterProtectedRoutes(protected)
		receipts.NewHandler(s.receiptsSvc).RegisterProtectedRoutes(protected)
	}
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	healthy, statuses := s.checks.CheckAll(c.Request.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    statuses,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "VoltSwap Console",
		"description": "Admin and staff console for the battery swap station network",
		"version":     "0.1.0",
		"backend":     s.cfg.BackendURL,
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	// Tracing (no-op when no OTLP endpoint configured)
	stopTraces, err := traces.Init(runCtx, s.cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
	} else {
		s.stopTraces = stopTraces
	}

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"backend", s.cfg.BackendURL,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// Export DB pool gauges
	if s.db != nil {
		go metrics.WatchDBPool(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, pool watcher)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	// Give load balancers time to stop sending traffic
	time.Sleep(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Flush pending trace spans
	if s.stopTraces != nil {
		if err := s.stopTraces(ctx); err != nil {
			s.logger.Error("trace shutdown error", "error", err)
		}
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
