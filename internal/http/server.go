package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"github.com/allisson/orders/internal/cloudevents"
	"github.com/allisson/orders/internal/config"
	"github.com/allisson/orders/internal/metrics"
	ordersHTTP "github.com/allisson/orders/internal/orders/http"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a new HTTP server with all routes wired.
func NewServer(
	cfg *config.Config,
	orderHandler *ordersHTTP.OrderHandler,
	eventHandler *ordersHTTP.EventHandler,
	metricsProvider *metrics.Provider,
	logger *slog.Logger,
) *Server {
	gin.SetMode(cfg.GetGinMode())

	router := gin.New()
	router.Use(requestid.New())
	router.Use(RecoveryMiddleware(logger))
	router.Use(CustomLoggerMiddleware(logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	// Health and readiness endpoints
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	v1 := router.Group("/v1")

	// Submission endpoints are rate limited per client IP; reads are not.
	submitMiddleware := []gin.HandlerFunc{}
	if cfg.RateLimitEnabled {
		submitMiddleware = append(submitMiddleware,
			RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, logger))
	}

	orders := v1.Group("/orders")
	orders.POST("", append(submitMiddleware, orderHandler.SubmitHandler)...)
	orders.POST("/direct", append(submitMiddleware, orderHandler.SubmitDirectHandler)...)
	orders.POST("/staged", append(submitMiddleware, orderHandler.SubmitStagedHandler)...)
	orders.GET("", orderHandler.ListHandler)
	orders.GET("/:id", orderHandler.GetHandler)

	// Inbound event deliveries go through the CloudEvents normalizer so the
	// handlers read plain payloads regardless of the wire format.
	events := v1.Group("/events")
	events.Use(cloudevents.Normalizer(cloudevents.Options{
		ForwardPropertiesAsHeaders: cfg.CloudEventsForwardHeaders,
		IncludedProperties:         splitCSV(cfg.CloudEventsIncludedHeaders),
		ExcludedProperties:         splitCSV(cfg.CloudEventsExcludedHeaders),
	}, logger))
	events.POST("/order-submitted", eventHandler.OrderSubmittedHandler)

	return &Server{
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	if s.logger != nil {
		s.logger.Info("starting http server", slog.String("addr", s.server.Addr))
	}

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.logger != nil {
		s.logger.Info("shutting down http server")
	}
	return s.server.Shutdown(ctx)
}
