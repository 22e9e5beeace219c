package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/retail-platform/inventory-engine/internal/application"
	mongoRepo "github.com/retail-platform/inventory-engine/internal/infrastructure/mongodb"
	"github.com/retail-platform/inventory-engine/pkg/kafka"
	"github.com/retail-platform/inventory-engine/pkg/logging"
	"github.com/retail-platform/inventory-engine/pkg/metrics"
	"github.com/retail-platform/inventory-engine/pkg/middleware"
	"github.com/retail-platform/inventory-engine/pkg/mongodb"
	"github.com/retail-platform/inventory-engine/pkg/outbox"
	"github.com/retail-platform/inventory-engine/pkg/tracing"
)

const serviceName = "inventory-engine"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting inventory-engine API")

	config := loadConfig()
	ctx := context.Background()

	// Tracing is best effort; the engine runs without a collector
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))

	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	kafkaProducer := kafka.NewProducer(config.Kafka)
	defer kafkaProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	lotRepo := mongoRepo.NewLotRepository(mongoClient, logger, m)
	saleRepo := mongoRepo.NewSaleLineRepository(mongoClient, logger)
	runRepo := mongoRepo.NewPurchaseRunRepository(mongoClient, logger)

	outboxPublisher := outbox.NewPublisher(
		lotRepo.OutboxRepository(),
		kafkaProducer,
		logger,
		m,
		outbox.DefaultPublisherConfig(),
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	lotService := application.NewLotService(lotRepo, lotRepo.OutboxRepository(), logger, m)
	allocationService := application.NewAllocationService(lotRepo, logger, m)
	analyticsService := application.NewAnalyticsService(lotRepo, saleRepo, runRepo, logger)

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	api := router.Group("/api/v1")
	{
		api.POST("/lots", createLotsHandler(lotService, logger))
		api.GET("/lots/:id", getLotHandler(lotService, logger))

		api.GET("/products/:productId/lots", listProductLotsHandler(lotService, logger))
		api.GET("/products/:productId/availability", availabilityHandler(lotService, logger))
		api.POST("/products/:productId/allocate", allocateHandler(allocationService, logger))

		api.GET("/purchase-runs/:id/lots", listRunLotsHandler(lotService, logger))
		api.GET("/purchase-runs/:id/progress", progressHandler(analyticsService, logger))
	}

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	MongoDB    *mongodb.Config
	Kafka      *kafka.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "inventory_engine"),
			ReplicaSet:     getEnv("MONGODB_REPLICA_SET", ""),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:      []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ClientID:     serviceName,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: -1,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func createLotsHandler(service *application.LotService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			PurchaseRunID string                          `json:"purchaseRunId" binding:"required"`
			PurchasedAt   time.Time                       `json:"purchasedAt" binding:"required"`
			Supplier      string                          `json:"supplier"`
			Items         []application.PurchaseItemInput `json:"items" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondBadRequest(err.Error())
			return
		}

		result, err := service.CreateLots(c.Request.Context(), application.CreateLotsCommand{
			PurchaseRunID: req.PurchaseRunID,
			PurchasedAt:   req.PurchasedAt,
			Supplier:      req.Supplier,
			Items:         req.Items,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		status := http.StatusCreated
		if len(result.Created) == 0 {
			// full redelivery: nothing new was written
			status = http.StatusOK
		}
		c.JSON(status, result)
	}
}

func getLotHandler(service *application.LotService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		lot, err := service.GetLot(c.Request.Context(), application.GetLotQuery{LotID: c.Param("id")})
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, lot)
	}
}

func listProductLotsHandler(service *application.LotService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		lots, err := service.ListLotsByProduct(c.Request.Context(), application.ListLotsByProductQuery{
			ProductID:     c.Param("productId"),
			AvailableOnly: c.Query("available") == "true",
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"lots": lots, "count": len(lots)})
	}
}

func availabilityHandler(service *application.LotService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		availability, err := service.GetAvailability(c.Request.Context(), application.GetAvailabilityQuery{
			ProductID: c.Param("productId"),
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, availability)
	}
}

func allocateHandler(service *application.AllocationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Quantity int    `json:"quantity" binding:"required"`
			SaleID   string `json:"saleId"`
			LineID   string `json:"lineId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondBadRequest(err.Error())
			return
		}

		result, err := service.Allocate(c.Request.Context(), application.AllocateCommand{
			ProductID: c.Param("productId"),
			Quantity:  req.Quantity,
			SaleID:    req.SaleID,
			LineID:    req.LineID,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func listRunLotsHandler(service *application.LotService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		lots, err := service.ListLotsByPurchaseRun(c.Request.Context(), application.ListLotsByPurchaseRunQuery{
			PurchaseRunID: c.Param("id"),
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"lots": lots, "count": len(lots)})
	}
}

func progressHandler(service *application.AnalyticsService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		progress, err := service.GetPurchaseRunProgress(c.Request.Context(), application.GetPurchaseRunProgressQuery{
			PurchaseRunID: c.Param("id"),
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, progress)
	}
}
