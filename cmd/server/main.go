package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fundtrail/trace-service/internal/api"
	"github.com/fundtrail/trace-service/internal/config"
	"github.com/fundtrail/trace-service/internal/crypto"
	"github.com/fundtrail/trace-service/internal/events"
	"github.com/fundtrail/trace-service/internal/geo"
	"github.com/fundtrail/trace-service/internal/repository/elasticsearch"
	"github.com/fundtrail/trace-service/internal/repository/postgres"
	"github.com/fundtrail/trace-service/internal/repository/s3"
	"github.com/fundtrail/trace-service/internal/service"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// 1. Config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	sugar.Info("Starting Fund-Trail Trace Service...")

	// 3. Crypto
	encryptor, err := crypto.NewFieldEncryptor(
		cfg.Encryption.EncryptionKeysBase64,
		cfg.Encryption.CurrentKeyVersion,
	)
	if err != nil {
		sugar.Fatalf("Failed to initialize encryptor: %v", err)
	}

	// 4. Repositories
	caseRepo, err := postgres.NewCaseRepository(cfg.Database, encryptor)
	if err != nil {
		sugar.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer caseRepo.Close()

	batchRepo := postgres.NewBatchRepository(caseRepo.Pool())

	esRepo, err := elasticsearch.NewSearchRepository(cfg.Elasticsearch)
	if err != nil {
		sugar.Warnf("Failed to connect to Elasticsearch: %v (search will be unavailable)", err)
		esRepo = nil
	}

	s3Repo, err := s3.NewArchiveRepository(context.Background(), cfg.S3)
	if err != nil {
		sugar.Fatalf("Failed to initialize S3 repository: %v", err)
	}

	// 5. Region resolution
	regionCache := geo.NewRegionCache()
	resolver := geo.NewResolver(regionCache, cfg.Resolver.LookupBaseURL, cfg.Resolver.LookupTimeout, logger)

	// 6. Services
	caseService := service.NewCaseService(caseRepo, batchRepo, resolver, cfg.Resolver.ResolveWorkers, logger)

	var indexer service.Indexer
	if esRepo != nil {
		indexer = esRepo
	}
	ingestService := service.NewIngestService(batchRepo, s3Repo, indexer, logger)

	// 7. Kafka Consumer
	consumer, err := events.NewUploadConsumer(cfg.Kafka, ingestService, logger)
	if err != nil {
		sugar.Fatalf("Failed to create Kafka consumer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sugar.Info("Starting Kafka consumer loop...")
		if err := consumer.Start(ctx); err != nil {
			sugar.Errorf("Kafka consumer failed: %v", err)
		}
	}()
	defer consumer.Close()

	// 8. API Server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	caseHandler := api.NewCaseHandler(caseService, esRepo)

	apiGroup := e.Group("/trace")

	keyData, err := os.ReadFile(cfg.Auth.JWTPublicKeyPath)
	var signingKey interface{}
	if err == nil {
		signingKey, err = jwt.ParseRSAPublicKeyFromPEM(keyData)
		if err != nil {
			sugar.Warnf("Failed to parse JWT public key: %v", err)
		}
	} else {
		sugar.Warnf("JWT public key not found at %s: %v", cfg.Auth.JWTPublicKeyPath, err)
	}

	if signingKey != nil {
		jwtConfig := echojwt.Config{
			SigningKey:    signingKey,
			SigningMethod: "RS256",
			NewClaimsFunc: func(c echo.Context) jwt.Claims {
				return new(jwt.MapClaims)
			},
		}
		apiGroup.Use(echojwt.WithConfig(jwtConfig))
		sugar.Info("JWT Authentication enabled for /trace/*")
	} else {
		sugar.Warn("JWT Authentication DISABLED - Missing Public Key (Security Risk)")
	}

	caseHandler.RegisterRoutes(apiGroup)

	// Health Check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Start Server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Shutting down the server: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sugar.Info("Shutting down service...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		sugar.Fatal(err)
	}
}
