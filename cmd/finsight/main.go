package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/finsight-ai/finsight/internal/config"
	dbRedis "github.com/finsight-ai/finsight/internal/db/redis"
	"github.com/finsight-ai/finsight/internal/guardrails/pii"
	"github.com/finsight-ai/finsight/internal/guardrails/policy"
	logpkg "github.com/finsight-ai/finsight/internal/logger"
	"github.com/finsight-ai/finsight/internal/metrics"
	"github.com/finsight-ai/finsight/internal/repository/embcache"
	indexrepo "github.com/finsight-ai/finsight/internal/repository/index"
	"github.com/finsight-ai/finsight/internal/resilience"
	chiTransport "github.com/finsight-ai/finsight/internal/transport/chi"
	openaiTransport "github.com/finsight-ai/finsight/internal/transport/openai"
	evaluationuc "github.com/finsight-ai/finsight/internal/usecase/evaluation"
	generationuc "github.com/finsight-ai/finsight/internal/usecase/generation"
	guardrailuc "github.com/finsight-ai/finsight/internal/usecase/guardrail"
	retrievaluc "github.com/finsight-ai/finsight/internal/usecase/retrieval"
	workflowuc "github.com/finsight-ai/finsight/internal/usecase/workflow"
	"github.com/finsight-ai/finsight/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting finsight API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("completion_model", cfg.Model.CompletionModel),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register workflow metrics explicitly (no init())
	metrics.Register()

	// One executor per external dependency keeps breaker state isolated.
	modelExec := resilience.NewExecutor(resilience.DefaultConfig())
	embedExec := resilience.NewExecutor(resilience.DefaultConfig())

	// Embedder chain: OpenAI -> Redis-backed cache
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Model.APIKey,
		BaseURL:    cfg.Model.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
		Executor:   embedExec,
	})
	embedder := embcache.New(
		baseEmbedder,
		store,
		cfg.Database.KeyPrefix,
		cfg.Embedding.Model,
		time.Duration(cfg.Embedding.CacheTTLh)*time.Hour,
		metrics.EmbeddingCacheTotal,
		logger,
	)

	completionClient := openaiTransport.NewClient(&openaiTransport.Config{
		APIKey:          cfg.Model.APIKey,
		BaseURL:         cfg.Model.BaseURL,
		CompletionModel: cfg.Model.CompletionModel,
		MaxTokens:       cfg.Model.MaxTokens,
		RateLimitRPS:    cfg.Model.RateLimitRPS,
		Burst:           cfg.Model.RateLimitBurst,
		Logger:          logger,
		Executor:        modelExec,
	})

	index := indexrepo.New(store, cfg.Database.IndexName, cfg.Database.KeyPrefix)

	retrievalSvc := retrievaluc.New(index, index, embedder, cfg.Retrieval.OverfetchFactor)
	generationSvc := generationuc.New(completionClient, cfg.Model.Temperature)
	evaluationSvc := evaluationuc.New(completionClient, generationSvc, embedder, cfg.EvalConfig())
	guardrailSvc := guardrailuc.New(
		pii.New(cfg.Guardrails.PIIRedaction),
		policy.New(cfg.Guardrails.ContentFilter),
	)

	pool := workflowuc.NewPool(cfg.Workflow.PoolSize, cfg.Workflow.QueueDepth)
	runner := workflowuc.NewRunner(retrievalSvc, generationSvc, evaluationSvc, guardrailSvc, pool).
		WithCallTimeout(time.Duration(cfg.Workflow.CallTimeoutSec) * time.Second)

	server := chiTransport.NewServer(runner, store, chiTransport.Defaults{
		TopK:                    cfg.Retrieval.DefaultTopK,
		MaxRegenerationAttempts: cfg.Workflow.MaxRegenerationAttempts,
	}, logger)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Use(chiMiddleware.Timeout(time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second))
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
