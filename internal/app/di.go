// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	dapr "github.com/dapr/go-sdk/client"

	"github.com/allisson/orders/internal/broker"
	"github.com/allisson/orders/internal/config"
	"github.com/allisson/orders/internal/database"
	"github.com/allisson/orders/internal/eventbus"
	"github.com/allisson/orders/internal/http"
	"github.com/allisson/orders/internal/metrics"
	ordersHTTP "github.com/allisson/orders/internal/orders/http"
	ordersRepository "github.com/allisson/orders/internal/orders/repository"
	ordersUsecase "github.com/allisson/orders/internal/orders/usecase"
	outboxRepository "github.com/allisson/orders/internal/outbox/repository"
	outboxUsecase "github.com/allisson/orders/internal/outbox/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger    *slog.Logger
	db        *sql.DB
	publisher *broker.PubSubPublisher

	// Managers
	txManager database.TxManager

	// Repositories
	orderRepo  ordersUsecase.OrderRepository
	outboxRepo outboxUsecase.OutboxRepository

	// Event buses
	directBus eventbus.EventBus
	stagedBus eventbus.EventBus

	// Metrics
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	relayMetrics    metrics.RelayMetrics

	// Use Cases
	orderUseCase ordersUsecase.OrderUseCase
	relay        outboxUsecase.UseCase

	// Servers and Workers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	publisherInit       sync.Once
	txManagerInit       sync.Once
	orderRepoInit       sync.Once
	outboxRepoInit      sync.Once
	directBusInit       sync.Once
	stagedBusInit       sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	relayMetricsInit    sync.Once
	orderUseCaseInit    sync.Once
	relayInit           sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := c.initDB()
		if err != nil {
			c.initErrors["db"] = err
			return
		}
		c.db = db
	})
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// Publisher returns the broker publisher instance.
func (c *Container) Publisher() *broker.PubSubPublisher {
	c.publisherInit.Do(func() {
		c.publisher = broker.NewPubSubPublisher(c.config.BrokerURL)
	})
	return c.publisher
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		txManager, err := c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
			return
		}
		c.txManager = txManager
	})
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// OrderRepository returns the order repository instance.
func (c *Container) OrderRepository() (ordersUsecase.OrderRepository, error) {
	c.orderRepoInit.Do(func() {
		repo, err := c.initOrderRepository()
		if err != nil {
			c.initErrors["orderRepo"] = err
			return
		}
		c.orderRepo = repo
	})
	if storedErr, exists := c.initErrors["orderRepo"]; exists {
		return nil, storedErr
	}
	return c.orderRepo, nil
}

// OutboxRepository returns the outbox record repository instance.
func (c *Container) OutboxRepository() (outboxUsecase.OutboxRepository, error) {
	c.outboxRepoInit.Do(func() {
		repo, err := c.initOutboxRepository()
		if err != nil {
			c.initErrors["outboxRepo"] = err
			return
		}
		c.outboxRepo = repo
	})
	if storedErr, exists := c.initErrors["outboxRepo"]; exists {
		return nil, storedErr
	}
	return c.outboxRepo, nil
}

// DirectEventBus returns the event bus that publishes straight to the broker.
func (c *Container) DirectEventBus() eventbus.EventBus {
	c.directBusInit.Do(func() {
		c.directBus = eventbus.NewDirectEventBus(c.Publisher(), c.config.OrderTopic)
	})
	return c.directBus
}

// StagedEventBus returns the event bus selected by the configured strategy.
// With the "staged" strategy it stages events into the Dapr state store, with
// the "direct" strategy it falls back to the direct bus so the staged
// endpoint keeps working without a Dapr sidecar.
func (c *Container) StagedEventBus() (eventbus.EventBus, error) {
	c.stagedBusInit.Do(func() {
		bus, err := c.initStagedEventBus()
		if err != nil {
			c.initErrors["stagedBus"] = err
			return
		}
		c.stagedBus = bus
	})
	if storedErr, exists := c.initErrors["stagedBus"]; exists {
		return nil, storedErr
	}
	return c.stagedBus, nil
}

// MetricsProvider returns the metrics provider instance.
// Returns nil when metrics are disabled in configuration.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder.
// Returns a no-op implementation when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		bm, err := c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
			return
		}
		c.businessMetrics = bm
	})
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// RelayMetrics returns the outbox relay metrics recorder.
// Returns a no-op implementation when metrics are disabled.
func (c *Container) RelayMetrics() (metrics.RelayMetrics, error) {
	c.relayMetricsInit.Do(func() {
		rm, err := c.initRelayMetrics()
		if err != nil {
			c.initErrors["relayMetrics"] = err
			return
		}
		c.relayMetrics = rm
	})
	if storedErr, exists := c.initErrors["relayMetrics"]; exists {
		return nil, storedErr
	}
	return c.relayMetrics, nil
}

// OrderUseCase returns the order use case instance.
func (c *Container) OrderUseCase() (ordersUsecase.OrderUseCase, error) {
	c.orderUseCaseInit.Do(func() {
		useCase, err := c.initOrderUseCase()
		if err != nil {
			c.initErrors["orderUseCase"] = err
			return
		}
		c.orderUseCase = useCase
	})
	if storedErr, exists := c.initErrors["orderUseCase"]; exists {
		return nil, storedErr
	}
	return c.orderUseCase, nil
}

// Relay returns the outbox relay instance.
func (c *Container) Relay() (outboxUsecase.UseCase, error) {
	c.relayInit.Do(func() {
		relay, err := c.initRelay()
		if err != nil {
			c.initErrors["relay"] = err
			return
		}
		c.relay = relay
	})
	if storedErr, exists := c.initErrors["relay"]; exists {
		return nil, storedErr
	}
	return c.relay, nil
}

// HTTPServer returns the HTTP server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	c.httpServerInit.Do(func() {
		server, err := c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
			return
		}
		c.httpServer = server
	})
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics HTTP server instance.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		server, err := c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}
		c.metricsServer = server
	})
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Shutdown HTTP server if initialized
	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	// Shutdown metrics server if initialized
	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	// Shutdown broker publisher if initialized
	if c.publisher != nil {
		if err := c.publisher.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("publisher shutdown: %w", err))
		}
	}

	// Shutdown metrics provider if initialized
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Close database connection if initialized
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	// Return combined errors if any occurred
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initOrderRepository creates the order repository instance.
func (c *Container) initOrderRepository() (ordersUsecase.OrderRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for order repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return ordersRepository.NewMySQLOrderRepository(db), nil
	case "postgres":
		return ordersRepository.NewPostgreSQLOrderRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initOutboxRepository creates the outbox record repository instance.
func (c *Container) initOutboxRepository() (outboxUsecase.OutboxRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for outbox repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return outboxRepository.NewMySQLOutboxRepository(db), nil
	case "postgres":
		return outboxRepository.NewPostgreSQLOutboxRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initStagedEventBus creates the event bus for the staged submission path.
func (c *Container) initStagedEventBus() (eventbus.EventBus, error) {
	switch c.config.EventBusStrategy {
	case eventbus.StrategyStaged:
		client, err := dapr.NewClient()
		if err != nil {
			return nil, fmt.Errorf("failed to create dapr client: %w", err)
		}
		return eventbus.NewDaprEventBus(client, c.config.StateStoreName, c.config.StagedEventTTL, c.Logger()), nil
	case eventbus.StrategyDirect:
		return c.DirectEventBus(), nil
	default:
		return nil, fmt.Errorf("unsupported event bus strategy: %s", c.config.EventBusStrategy)
	}
}

// initBusinessMetrics creates the business metrics recorder.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	bm, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return bm, nil
}

// initRelayMetrics creates the outbox relay metrics recorder.
func (c *Container) initRelayMetrics() (metrics.RelayMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for relay metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpRelayMetrics(), nil
	}

	rm, err := metrics.NewRelayMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create relay metrics: %w", err)
	}
	return rm, nil
}

// initOrderUseCase creates the order use case with all its dependencies.
func (c *Container) initOrderUseCase() (ordersUsecase.OrderUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for order use case: %w", err)
	}

	orderRepo, err := c.OrderRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get order repository for order use case: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for order use case: %w", err)
	}

	stagedBus, err := c.StagedEventBus()
	if err != nil {
		return nil, fmt.Errorf("failed to get staged event bus for order use case: %w", err)
	}

	useCase := ordersUsecase.NewOrderUseCase(
		txManager,
		orderRepo,
		outboxRepo,
		c.DirectEventBus(),
		stagedBus,
		c.config.OrderTopic,
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for order use case: %w", err)
		}
		useCase = ordersUsecase.NewOrderUseCaseWithMetrics(useCase, businessMetrics)
	}

	return useCase, nil
}

// initRelay creates the outbox relay with all its dependencies.
func (c *Container) initRelay() (outboxUsecase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for relay: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for relay: %w", err)
	}

	relayMetrics, err := c.RelayMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get relay metrics: %w", err)
	}

	relayConfig := outboxUsecase.Config{
		Interval:  c.config.RelayInterval,
		BatchSize: c.config.RelayBatchSize,
	}

	return outboxUsecase.NewRelay(relayConfig, txManager, outboxRepo, c.Publisher(), relayMetrics, c.Logger()), nil
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	orderUseCase, err := c.OrderUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get order use case for http server: %w", err)
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	orderHandler := ordersHTTP.NewOrderHandler(orderUseCase, logger)
	eventHandler := ordersHTTP.NewEventHandler(logger)

	return http.NewServer(c.config, orderHandler, eventHandler, metricsProvider, logger), nil
}

// initMetricsServer creates the metrics HTTP server with all its dependencies.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}

	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), metricsProvider), nil
}
