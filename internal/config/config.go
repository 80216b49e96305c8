package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPathEnv names the optional YAML file loaded before environment overrides
const ConfigPathEnv = "PDFQA_CONFIG"

type ServerConfig struct {
	Addr              string `yaml:"addr"`
	CORSAllowedOrigin string `yaml:"cors_allowed_origin"`
	MaxUploadMB       int    `yaml:"max_upload_mb"`
	// TrustProxy takes the client address from X-Forwarded-For; enable only behind a reverse proxy
	TrustProxy        bool   `yaml:"trust_proxy"`
}

type EmbeddingConfig struct {
	URL         string `yaml:"url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	Retries     int    `yaml:"retries"`
	BatchSize   int    `yaml:"batch_size"`
}

type LLMConfig struct {
	URL   string `yaml:"url"`
	Model string `yaml:"model"`
}

type QdrantConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	APIKey      string `yaml:"api_key"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ChunkingConfig struct {
	MaxTokens     int `yaml:"max_tokens"`
	OverlapTokens int `yaml:"overlap_tokens"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Config is the root configuration of the pdfqa server and CLI
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Redis     RedisConfig     `yaml:"redis"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":9000",
			CORSAllowedOrigin: "*",
			MaxUploadMB:       50,
		},
		Embedding: EmbeddingConfig{
			URL:         "http://localhost:8001",
			TimeoutSecs: 60,
			Retries:     3,
			BatchSize:   100,
		},
		LLM: LLMConfig{
			URL:   "http://localhost:1234",
			Model: "llama-3.2-3b-instruct",
		},
		Qdrant: QdrantConfig{
			Host:        "localhost",
			Port:        6333,
			TimeoutSecs: 30,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Chunking: ChunkingConfig{
			MaxTokens:     600,
			OverlapTokens: 100,
		},
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 10,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file named by PDFQA_CONFIG,
// then a .env file in the working directory, then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(ConfigPathEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("SERVER_ADDR", c.Server.Addr)
	c.Server.CORSAllowedOrigin = getEnv("CORS_ALLOWED_ORIGIN", c.Server.CORSAllowedOrigin)
	c.Server.MaxUploadMB = getEnvInt("MAX_UPLOAD_MB", c.Server.MaxUploadMB)
	c.Server.TrustProxy = getEnvBool("TRUST_PROXY", c.Server.TrustProxy)

	c.Embedding.URL = getEnv("EMBEDDING_SERVICE_URL", c.Embedding.URL)
	c.Embedding.TimeoutSecs = getEnvInt("EMBEDDING_TIMEOUT_SECS", c.Embedding.TimeoutSecs)
	c.Embedding.Retries = getEnvInt("EMBEDDING_RETRIES", c.Embedding.Retries)
	c.Embedding.BatchSize = getEnvInt("EMBEDDING_BATCH_SIZE", c.Embedding.BatchSize)

	c.LLM.URL = getEnv("LLM_SERVICE_URL", c.LLM.URL)
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)

	c.Qdrant.Host = getEnv("QDRANT_HOST", c.Qdrant.Host)
	c.Qdrant.Port = getEnvInt("QDRANT_PORT", c.Qdrant.Port)
	c.Qdrant.APIKey = getEnv("QDRANT_API_KEY", c.Qdrant.APIKey)

	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnvInt("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)

	c.Chunking.MaxTokens = getEnvInt("CHUNK_MAX_TOKENS", c.Chunking.MaxTokens)
	c.Chunking.OverlapTokens = getEnvInt("CHUNK_OVERLAP_TOKENS", c.Chunking.OverlapTokens)

	c.RateLimit.RPS = getEnvFloat("RATE_LIMIT_RPS", c.RateLimit.RPS)
	c.RateLimit.Burst = getEnvInt("RATE_LIMIT_BURST", c.RateLimit.Burst)
}

// Validate rejects settings the services cannot start with
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server address is required")
	}
	if c.Embedding.URL == "" {
		return fmt.Errorf("embedding service url is required")
	}
	if c.LLM.URL == "" {
		return fmt.Errorf("llm service url is required")
	}
	if c.Chunking.MaxTokens <= 0 || c.Chunking.OverlapTokens < 0 || c.Chunking.OverlapTokens >= c.Chunking.MaxTokens {
		return fmt.Errorf("invalid chunking: max_tokens=%d overlap_tokens=%d", c.Chunking.MaxTokens, c.Chunking.OverlapTokens)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding batch size must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
