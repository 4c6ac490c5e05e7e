package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/adapter/identity"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/observability"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	otelShutdown, err := observability.SetupTracing(ctx, cfg.OtelEndpoint)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}

	// Initialize MongoDB
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect mongodb: %v", err)
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		log.Fatalf("failed to ping mongodb: %v", err)
	}
	log.Info("connected to mongodb")

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	log.Info("connected to redis")

	// Initialize adapters
	store := storage.NewMongoStore(mongoClient.Database(cfg.MongoDatabase))
	if err := store.EnsureIndexes(ctx); err != nil {
		log.Fatalf("failed to create indexes: %v", err)
	}
	txRunner := storage.NewMongoTxRunner(mongoClient)
	cache := storage.NewRedisCatalogCache(rdb, cfg.CacheTTL)
	gateway := identity.NewGateway(cfg.IdentityBaseURL, cfg.IdentityAPIKey)

	// Initialize services
	cartService := service.NewCartService(txRunner, store, store, cache, log)
	catalogService := service.NewCatalogService(store, cache, log)
	userService := service.NewUserService(gateway, store, log)

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(cartService, catalogService, userService, log)
	auth := handler.NewAuthMiddleware(gateway, log)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpHandler.Routes(auth),
	}

	go func() {
		log.Infof("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Info("HTTP server stopped")

	if err := otelShutdown(shutdownCtx); err != nil {
		log.Warnf("tracing shutdown: %v", err)
	}

	rdb.Close()
	mongoClient.Disconnect(context.Background())
	log.Info("connections closed")
}
