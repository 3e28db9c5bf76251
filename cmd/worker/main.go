package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/samber/do"
	"github.com/serroba/ollo/internal/cleanup"
	"github.com/serroba/ollo/internal/container"
	"github.com/serroba/ollo/internal/messaging"
	"go.uber.org/zap"
)

func main() {
	opts := &container.Options{
		LogFormat:       getEnv("LOG_FORMAT", "console"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RateLimitStore:  container.RateLimitStoreMemory,
		BlobDir:         getEnv("BLOB_DIR", ""),
		StoryTTL:        getEnv("STORY_TTL", "24h"),
		StoryCacheTTL:   getEnv("STORY_CACHE_TTL", "10m"),
		CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "every 1 hours"),
		AuthSecret:      getEnv("AUTH_SECRET", "dev-secret"),
		ConsumerGroup:   getEnv("CONSUMER_GROUP", "ollo-analytics"),
	}

	injector := do.New()
	container.Register(injector, opts)
	container.ConsumerGroupPackage(injector)

	logger := do.MustInvoke[*zap.Logger](injector)

	if err := opts.Validate(); err != nil {
		logger.Fatal("invalid options", zap.Error(err))
	}

	if opts.DatabaseURL == "" {
		logger.Warn("no database configured, the cleanup job only sees this process's memory store")
	}

	group := do.MustInvoke[*messaging.ConsumerGroup](injector)

	enabled, err := cleanupEnabled()
	if err != nil {
		logger.Fatal("invalid worker options", zap.Error(err))
	}

	if enabled {
		group.Add(do.MustInvoke[*cleanup.Scheduler](injector))
	}

	ctx, cancel := context.WithCancel(context.Background())

	if err := group.Start(ctx); err != nil {
		logger.Fatal("failed to start worker", zap.Error(err))
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	cancel()

	if err := injector.Shutdown(); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

// cleanupEnabled reads CLEANUP_ENABLED, defaulting to true. A value that is not
// a boolean is an error rather than a silent false.
func cleanupEnabled() (bool, error) {
	raw := getEnv("CLEANUP_ENABLED", "true")

	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("CLEANUP_ENABLED=%q is not a boolean", raw)
	}

	return enabled, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return defaultValue
}
