package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the Redis client with connection pooling
type RedisClient struct {
	client *redis.Client
	config RedisConfig
}

// RedisConfig holds configuration for Redis connection
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultRedisConfig returns a Redis configuration with sensible defaults
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewRedisClient creates a new Redis client. No connection is made until first use.
func NewRedisClient(config RedisConfig) *RedisClient {
	defaults := DefaultRedisConfig()
	if config.Host == "" {
		config.Host = defaults.Host
	}
	if config.Port == 0 {
		config.Port = defaults.Port
	}
	if config.PoolSize == 0 {
		config.PoolSize = defaults.PoolSize
	}
	if config.MinIdleConns == 0 {
		config.MinIdleConns = defaults.MinIdleConns
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = defaults.DialTimeout
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = defaults.ReadTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	return &RedisClient{
		client: client,
		config: config,
	}
}

// Ping checks if Redis is alive
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Addr returns host:port of the configured server
func (r *RedisClient) Addr() string {
	return fmt.Sprintf("%s:%d", r.config.Host, r.config.Port)
}

// Close closes the Redis client and releases all connections
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// GetClient returns the underlying redis client for repositories
func (r *RedisClient) GetClient() *redis.Client {
	return r.client
}
