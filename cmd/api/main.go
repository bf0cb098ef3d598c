package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smukkama/health-correlation-server/internal/cache"
	"github.com/smukkama/health-correlation-server/internal/database"
	"github.com/smukkama/health-correlation-server/internal/queue"
	"github.com/smukkama/health-correlation-server/internal/server"
	"github.com/smukkama/health-correlation-server/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting API Service...")

	// Connect to database
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	// Run migrations
	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create calculations topic
	if err := queue.CreateTopic(
		cfg.Kafka.Brokers,
		cfg.Kafka.TopicCalculations,
		cfg.Kafka.NumPartitions,
		1, // replication factor
	); err != nil {
		fmt.Printf("Note: Topic creation failed (may already exist): %v\n", err)
	}

	// Create Kafka producer
	producer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicCalculations)
	defer producer.Close()
	fmt.Println("Kafka producer initialized")

	// Connect to Redis for the correlation read cache; reads fall back to
	// the database when Redis is unreachable
	var corrCache *cache.CorrelationCache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		fmt.Printf("Note: Redis unavailable, serving reads without cache: %v\n", err)
	} else {
		corrCache = cache.New(redisClient, cfg.Redis.CacheTTL)
		fmt.Println("Connected to Redis")
	}
	cancel()
	defer redisClient.Close()

	// Start HTTP server
	handler := server.NewHandler(db, producer, corrCache)
	httpServer := server.NewHTTPServer(&cfg.HTTPServer, server.NewRouter(handler))

	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	fmt.Println("\n✓ API Service is running")
	fmt.Printf("✓ POST /api/calculate and GET /api/correlation on port %d\n", cfg.HTTPServer.Port)
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	if err := httpServer.Stop(); err != nil {
		fmt.Printf("HTTP shutdown error: %v\n", err)
	}
	fmt.Println("API Service stopped")
}
