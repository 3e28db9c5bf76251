// Package container wires the application with samber/do. Each *Package
// function registers the providers for one concern; binaries pick the packages
// they need.
package container

import (
	"fmt"
	"time"

	"github.com/samber/do"
	"github.com/serroba/ollo/internal/cleanup"
)

const (
	RateLimitStoreMemory   = "memory"
	RateLimitStoreRedis    = "redis"
	RateLimitStoreSQLite   = "sqlite"
	RateLimitStorePostgres = "postgres"
)

type Options struct {
	Port             int    `default:"8888"              help:"Port to listen on"                                          short:"p"`
	LogFormat        string `default:"console"           help:"Log format: console or json"`
	RedisAddr        string `default:"localhost:6379"    help:"Redis server address, empty disables Redis"                 short:"r"`
	DatabaseURL      string `default:""                  help:"PostgreSQL URL, empty keeps stories in memory"`
	RateLimitStore   string `default:"redis"             help:"Rate limit backend: memory, redis, sqlite or postgres"`
	SQLitePath       string `default:"ollo-ratelimit.db" help:"SQLite file for the sqlite rate limit backend"`
	PolicyFile       string `default:""                  help:"YAML file overriding the default rate limit policy"`
	BlobDir          string `default:""                  help:"Directory for story media, empty keeps media in memory"`
	StoryTTL         string `default:"24h"               help:"How long a story stays visible"`
	StoryCacheTTL    string `default:"10m"               help:"Redis cache TTL for story lookups, 0 disables the cache"`
	CleanupSchedule  string `default:"every 1 hours"     help:"Cleanup interval, e.g. 'every 30 minutes' or '1h'"`
	CleanupInProcess bool   `default:"false"             help:"Run the cleanup scheduler inside the API server"`
	AuthSecret       string `default:"dev-secret"        help:"HMAC secret for bearer tokens"`
	InternalToken    string `default:""                  help:"Token marking first-party calls as trusted"`
	ConsumerGroup    string `default:"ollo-analytics"    help:"Redis stream consumer group for analytics"`
}

func parseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}

	return d, nil
}

// Validate checks option combinations that the providers cannot recover from.
func (o *Options) Validate() error {
	switch o.RateLimitStore {
	case RateLimitStoreMemory, RateLimitStoreSQLite:
	case RateLimitStoreRedis:
		if o.RedisAddr == "" {
			return fmt.Errorf("rate limit store %q needs a redis address", o.RateLimitStore)
		}
	case RateLimitStorePostgres:
		if o.DatabaseURL == "" {
			return fmt.Errorf("rate limit store %q needs a database url", o.RateLimitStore)
		}
	default:
		return fmt.Errorf("unknown rate limit store %q", o.RateLimitStore)
	}

	if _, err := parseDuration("story ttl", o.StoryTTL); err != nil {
		return err
	}

	if _, err := parseDuration("story cache ttl", o.StoryCacheTTL); err != nil {
		return err
	}

	if _, err := cleanup.ParseSchedule(o.CleanupSchedule); err != nil {
		return fmt.Errorf("invalid cleanup schedule: %w", err)
	}

	if o.AuthSecret == "" {
		return fmt.Errorf("auth secret must not be empty")
	}

	return nil
}

// Register adds the packages shared by every binary. Packages whose
// dependencies are not configured are registered but never invoked.
func Register(injector *do.Injector, options *Options) {
	do.ProvideValue(injector, options)
	LoggerPackage(injector)
	RedisPackage(injector)
	PostgresPackage(injector)
	SQLitePackage(injector)
	BlobPackage(injector)
	StoryPackage(injector)
	PublisherGroupPackage(injector)
	CleanupPackage(injector)
}
