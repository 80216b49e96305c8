package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"pdfqa/internal/config"
	"pdfqa/internal/db"
	"pdfqa/internal/handlers"
	"pdfqa/internal/repositories"
	"pdfqa/internal/routes"
	"pdfqa/internal/services"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Services holds the long-lived pipeline components shared by the HTTP server and the CLI
type Services struct {
	Ingestion   *services.IngestionService
	Query       *services.QueryService
	Collections *services.CollectionService

	vectorIndex repositories.VectorIndex
	registry    repositories.PDFRepository
}

// Close releases every client connection
func (s *Services) Close() error {
	if s.registry != nil {
		if err := s.registry.Close(); err != nil {
			return err
		}
	}
	return s.vectorIndex.Close()
}

// NewServices builds clients, repositories and services from the configuration.
// Qdrant must be reachable; Redis is optional and disables the PDF registry when absent.
func NewServices(cfg *config.Config, logger *log.Logger) (*Services, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := logger.Writer()

	vectorIndex, err := initializeVectorIndex(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	registry := initializeRegistry(ctx, cfg, logger)

	tokenizer, err := services.NewTiktokenTokenizer(services.DefaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	chunker, err := services.NewTokenChunker(tokenizer, cfg.Chunking.MaxTokens, cfg.Chunking.OverlapTokens)
	if err != nil {
		return nil, fmt.Errorf("create chunker: %w", err)
	}

	embeddingLogger := log.New(out, "[EMBED] ", log.LstdFlags)
	logger.Printf("Initializing embedding client: %s (timeout: %ds, retries: %d)",
		cfg.Embedding.URL, cfg.Embedding.TimeoutSecs, cfg.Embedding.Retries)
	embedder := services.NewEmbeddingClientWithOptions(cfg.Embedding.URL, services.EmbeddingClientOptions{
		Timeout: time.Duration(cfg.Embedding.TimeoutSecs) * time.Second,
		Retries: cfg.Embedding.Retries,
		Logger:  embeddingLogger,
	})

	llmLogger := log.New(out, "[LLM] ", log.LstdFlags)
	logger.Printf("Initializing completion streamer: %s (model: %s)", cfg.LLM.URL, cfg.LLM.Model)
	streamer := services.NewCompletionStreamer(cfg.LLM.URL, cfg.LLM.Model, llmLogger)
	if err := streamer.HealthCheck(ctx); err != nil {
		logger.Printf("⚠️  LLM service not reachable yet: %v", err)
	} else {
		logger.Println("✅ LLM service reachable")
	}

	ingestion := services.NewIngestionService(
		services.NewPDFTextExtractor(),
		chunker,
		embedder,
		vectorIndex,
		registry,
		log.New(out, "[INGEST] ", log.LstdFlags),
	)
	ingestion.SetBatchSize(cfg.Embedding.BatchSize)

	query := services.NewQueryService(embedder, vectorIndex, streamer, log.New(out, "[QUERY] ", log.LstdFlags))
	collections := services.NewCollectionService(vectorIndex, registry, log.New(out, "[PDFS] ", log.LstdFlags))

	logger.Println("✅ Services initialized successfully")

	return &Services{
		Ingestion:   ingestion,
		Query:       query,
		Collections: collections,
		vectorIndex: vectorIndex,
		registry:    registry,
	}, nil
}

// NewServer wires the HTTP front door around freshly built services
func NewServer(cfg *config.Config) (*http.Server, *Services, error) {
	logger := log.New(os.Stdout, "[SERVER] ", log.LstdFlags)

	svc, err := NewServices(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	httpLogger := log.New(os.Stdout, "[HTTP] ", log.LstdFlags)
	limiter := newIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.Server.TrustProxy, httpLogger)

	h := &routes.Handlers{
		Health: handlers.HealthCheckHandler,
		PDF:    handlers.NewPDFHandler(svc.Ingestion, svc.Collections, int64(cfg.Server.MaxUploadMB)<<20, httpLogger),
		Ask:    handlers.NewAskHandler(svc.Query, httpLogger),
		Limit:  limiter.Middleware,
	}
	var stopSweeper func()
	if cfg.RateLimit.RPS <= 0 {
		h.Limit = nil
		logger.Println("⚠️  Rate limiting disabled")
	} else {
		stopSweeper = limiter.startSweeper(time.Minute)
	}
	if cfg.Server.TrustProxy {
		logger.Println("Trusting X-Forwarded-For for client addresses")
	}

	router := mux.NewRouter()
	routes.RegisterRoutes(router, h)

	// Add Swagger endpoints
	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           corsMiddleware(cfg.Server.CORSAllowedOrigin)(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if stopSweeper != nil {
		srv.RegisterOnShutdown(stopSweeper)
	}
	return srv, svc, nil
}

// initializeVectorIndex connects to Qdrant; the service cannot run without it
func initializeVectorIndex(ctx context.Context, cfg *config.Config, logger *log.Logger) (repositories.VectorIndex, error) {
	qdrantConfig := db.QdrantConfig{
		Host:    cfg.Qdrant.Host,
		Port:    cfg.Qdrant.Port,
		APIKey:  cfg.Qdrant.APIKey,
		Timeout: time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
	}
	logger.Printf("Connecting to Qdrant: %s:%d", qdrantConfig.Host, qdrantConfig.Port)

	client := db.NewQdrantClient(qdrantConfig)
	if err := client.Heartbeat(ctx); err != nil {
		logger.Printf("❌ Qdrant connection failed: %v", err)
		logger.Println("   Hint: Ensure Qdrant is running (docker run -d -p 6333:6333 qdrant/qdrant)")
		return nil, fmt.Errorf("qdrant unavailable: %w", err)
	}
	logger.Println("✅ Qdrant connected successfully")

	return repositories.NewQdrantVectorIndex(client), nil
}

// initializeRegistry connects to Redis, returning nil when it is unreachable
func initializeRegistry(ctx context.Context, cfg *config.Config, logger *log.Logger) repositories.PDFRepository {
	redisConfig := db.DefaultRedisConfig()
	redisConfig.Host = cfg.Redis.Host
	redisConfig.Port = cfg.Redis.Port
	redisConfig.Password = cfg.Redis.Password
	redisConfig.DB = cfg.Redis.DB
	logger.Printf("Connecting to Redis: %s:%d (DB: %d)", redisConfig.Host, redisConfig.Port, redisConfig.DB)

	redisClient := db.NewRedisClient(redisConfig)
	registry := repositories.NewRedisPDFRepository(redisClient.GetClient())
	if err := registry.Ping(ctx); err != nil {
		logger.Printf("⚠️  Redis connection failed: %v", err)
		logger.Println("   PDF registry disabled, /pdfs will list collection ids only")
		logger.Println("   Hint: Ensure Redis is running (docker run -d -p 6379:6379 redis:7-alpine)")
		_ = registry.Close()
		return nil
	}
	logger.Println("✅ Redis connected successfully")

	return registry
}
