package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smukkama/health-correlation-server/internal/cache"
	"github.com/smukkama/health-correlation-server/internal/database"
	"github.com/smukkama/health-correlation-server/internal/engine"
	"github.com/smukkama/health-correlation-server/internal/queue"
	"github.com/smukkama/health-correlation-server/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Calculator Service...")

	// Connect to database
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Connect to Redis so stale cached correlations can be invalidated
	var corrCache *cache.CorrelationCache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		fmt.Printf("Note: Redis unavailable, skipping cache invalidation: %v\n", err)
	} else {
		corrCache = cache.New(redisClient, cfg.Redis.CacheTTL)
		fmt.Println("Connected to Redis")
	}
	cancel()
	defer redisClient.Close()

	// Create Kafka consumer
	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicCalculations, cfg.Kafka.GroupID)
	defer consumer.Close()
	fmt.Println("Kafka consumer created (registering with broker...)")

	// Wire the pipeline to the stores and start the worker pool
	pipeline := engine.NewPipeline(db, db)
	calcConsumer := queue.NewCalcConsumer(consumer, pipeline, corrCache,
		cfg.Worker.WorkerCount, cfg.Worker.JobQueueSize)

	ctx, cancelConsume := context.WithCancel(context.Background())
	defer cancelConsume()
	calcConsumer.Start(ctx)

	// Print consumer stats periodically
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			stats := consumer.Stats()
			fmt.Printf("Consumer stats: Messages=%d, Bytes=%d, Errors=%d\n",
				stats.Messages, stats.Bytes, stats.Errors)
		}
	}()

	fmt.Println("\n✓ Calculator Service is running")
	fmt.Println("✓ Consuming calculation requests and writing correlations")
	fmt.Println("✓ Press Ctrl+C to stop")
	fmt.Println("\nWaiting for messages...")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	// Requests still queued or in flight stay uncommitted; the broker
	// redelivers them when the service restarts.
	cancelConsume()
	calcConsumer.Stop()
	fmt.Println("Calculator Service stopped")
}
