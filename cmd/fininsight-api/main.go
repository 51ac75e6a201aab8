package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fininsight/fininsight/internal/api"
	"github.com/fininsight/fininsight/internal/auth"
	chatpostgres "github.com/fininsight/fininsight/internal/chat/postgres"
	"github.com/fininsight/fininsight/internal/config"
	finstorepostgres "github.com/fininsight/fininsight/internal/finstore/postgres"
	"github.com/fininsight/fininsight/internal/ingest"
	"github.com/fininsight/fininsight/internal/llm"
	"github.com/fininsight/fininsight/internal/nl2sql"
	"github.com/fininsight/fininsight/internal/observability"
	"github.com/fininsight/fininsight/internal/postgres"
	"github.com/fininsight/fininsight/internal/rag"
	s3store "github.com/fininsight/fininsight/internal/storage/s3"
	"github.com/fininsight/fininsight/internal/ui"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("fininsight-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	financialDB, err := postgres.Open(context.Background(), postgres.DBConfig{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open financial db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = financialDB.Close() }()

	chatDB := financialDB
	if cfg.ChatStore.DSN != cfg.Database.DSN {
		chatDB, err = postgres.Open(context.Background(), postgres.DBConfig{
			DSN:             cfg.ChatStore.DSN,
			MaxOpenConns:    cfg.ChatStore.MaxOpenConns,
			MaxIdleConns:    cfg.ChatStore.MaxIdleConns,
			ConnMaxIdleTime: cfg.ChatStore.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.ChatStore.ConnMaxLifetime,
		})
		if err != nil {
			logger.Error("failed to open chat store db", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = chatDB.Close() }()
	}

	chatStore := chatpostgres.NewRepository(chatDB)
	finStore := finstorepostgres.NewStore(financialDB)

	objectStore, err := s3store.New(s3store.Config{
		Endpoint:        cfg.ObjectStore.Endpoint,
		Region:          cfg.ObjectStore.Region,
		AccessKeyID:     cfg.ObjectStore.AccessKeyID,
		SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
		UseSSL:          cfg.ObjectStore.UseSSL,
	})
	if err != nil {
		logger.Error("failed to initialize object store", slog.Any("error", err))
		os.Exit(1)
	}

	var pipeline *rag.Pipeline
	if cfg.AI.APIKey != "" {
		aiClient, err := llm.NewClient(llm.Config{
			BaseURL:    cfg.AI.BaseURL,
			APIKey:     cfg.AI.APIKey,
			APIVersion: cfg.AI.APIVersion,
			Timeout:    cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize ai client", slog.Any("error", err))
			os.Exit(1)
		}
		translator, err := nl2sql.NewOpenAITranslator(aiClient, nl2sql.OpenAIConfig{
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.SQLTemperature,
			MaxTokens:   cfg.AI.SQLMaxTokens,
		})
		if err != nil {
			logger.Error("failed to initialize sql translator", slog.Any("error", err))
			os.Exit(1)
		}
		synthesizer, err := rag.NewOpenAISynthesizer(aiClient, rag.SynthesizerConfig{
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.AnswerTemperature,
			MaxTokens:   cfg.AI.AnswerMaxTokens,
		})
		if err != nil {
			logger.Error("failed to initialize answer synthesizer", slog.Any("error", err))
			os.Exit(1)
		}
		pipeline = &rag.Pipeline{
			Store:       finStore,
			Translator:  translator,
			Synthesizer: synthesizer,
			Logger:      logger,
		}
	} else {
		logger.Warn("ai api key is not set, question answering is disabled")
	}
	ingestor := &ingest.Service{
		Blobs:  objectStore,
		Store:  finStore,
		Logger: logger,
	}

	uiDeps := ui.Dependencies{
		Logger:        logger,
		ChatStore:     chatStore,
		DefaultUserID: cfg.UI.DefaultUserID,
	}
	if pipeline != nil {
		uiDeps.Pipeline = pipeline
	}
	uiHandler, err := ui.NewHandler(uiDeps)
	if err != nil {
		logger.Error("failed to initialize ui", slog.Any("error", err))
		os.Exit(1)
	}

	deps := api.Dependencies{
		Logger:    logger,
		ChatStore: chatStore,
		Ingestor:  ingestor,
		UI:        uiHandler,
		Readiness: api.CombineReadinessChecks(
			chatStore.HealthCheck,
			finStore.HealthCheck,
			api.CheckAIConfig(cfg),
		),
		DependencyTimeout: time.Second,
	}
	if pipeline != nil {
		deps.Pipeline = pipeline
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
