/**
 * @description
 * This is the main entry point for the collections-service. It is responsible
 * for initializing all components of the service: configuration, the database
 * connection pool, the Redis-backed cache and rate limiter, the RabbitMQ
 * event producer, the repository, the core application service, the scheduled
 * cache purge, and the HTTP server. It wires everything together and starts
 * the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: Redis client.
 * - github.com/robfig/cron/v3: Scheduled cache maintenance.
 * - internal/api, internal/app, internal/cache, internal/config, internal/store: Internal packages.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/collectra/collections-service/internal/api"
	"github.com/collectra/collections-service/internal/app"
	"github.com/collectra/collections-service/internal/cache"
	"github.com/collectra/collections-service/internal/config"
	"github.com/collectra/collections-service/internal/store"
	"github.com/collectra/collections-service/pkg/rabbitmq"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting collections-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Connect to Redis. A missing or unreachable Redis is not fatal; the cache
	// degrades to its in-process fallback and rate limiting is disabled.
	var redisClient *redis.Client
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; using in-process cache only\" env=REDIS_URL")
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; using in-process cache only\" err=%v", parseErr)
		} else {
			redisClient = redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; continuing with degraded cache\" err=%v", pingErr)
			} else {
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
			defer redisClient.Close()
		}
	}

	var cacheClient *cache.Client
	if redisClient != nil {
		cacheClient = cache.New(redisClient)
	} else {
		cacheClient = cache.New(nil)
	}

	var limiter app.RateLimiter = app.NoopRateLimiter{}
	if redisClient != nil {
		limiter = app.NewRedisRateLimiter(redisClient)
	}

	// Initialize the RabbitMQ producer to publish entity events.
	// This service only needs to publish, so we use a producer.
	var events rabbitmq.Publisher
	producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		events = &rabbitmq.EventProducerFallback{}
	} else {
		defer producer.Close()
		events = producer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Initialize the core application service with its dependencies.
	service := app.NewService(
		repository,
		cacheClient,
		events,
		cfg.JWTSecret,
		time.Duration(cfg.JWTExpiryHours)*time.Hour,
	)

	// Sweep expired fallback cache entries every minute; Redis handles its
	// own key expiry.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 1m", func() {
		if purged := cacheClient.PurgeExpired(); purged > 0 {
			log.Printf("level=info component=cache msg=\"expired fallback entries purged\" count=%d", purged)
		}
	}); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"cache purge schedule failed\" err=%v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize the API handlers and router.
	handlers := api.NewHandlers(service)
	router := api.Routes(handlers, service, limiter, api.RouterConfig{
		AllowedOrigins: cfg.Origins(),
		APIRateLimit:   int64(cfg.APIRateLimitPerMinute),
		APIRateWindow:  time.Minute,
		AuthRateLimit:  int64(cfg.AuthRateLimitPerWindow),
		AuthRateWindow: time.Duration(cfg.AuthRateWindowMinutes) * time.Minute,
		BulkRateLimit:  int64(cfg.BulkRateLimitPerMinute),
		BulkRateWindow: time.Minute,
	})

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
