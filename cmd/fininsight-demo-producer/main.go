package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fininsight/fininsight/internal/config"
	"github.com/fininsight/fininsight/internal/demo/producer"
	s3store "github.com/fininsight/fininsight/internal/storage/s3"
)

func main() {
	_ = godotenv.Load()

	cfg, err := producer.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load demo producer config", slog.Any("error", err))
		os.Exit(1)
	}
	serviceCfg, err := config.LoadFromEnv("fininsight-demo-producer")
	if err != nil {
		slog.Error("failed to load service config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	blobs, err := s3store.New(s3store.Config{
		Endpoint:        serviceCfg.ObjectStore.Endpoint,
		Region:          serviceCfg.ObjectStore.Region,
		AccessKeyID:     serviceCfg.ObjectStore.AccessKeyID,
		SecretAccessKey: serviceCfg.ObjectStore.SecretAccessKey,
		UseSSL:          serviceCfg.ObjectStore.UseSSL,
	})
	if err != nil {
		logger.Error("failed to initialize object store", slog.Any("error", err))
		os.Exit(1)
	}

	service, err := producer.NewService(cfg, logger, nil, blobs)
	if err != nil {
		logger.Error("failed to initialize demo producer", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("demo producer started",
		slog.String("api_url", cfg.APIBaseURL),
		slog.String("container", cfg.Container),
		slog.String("table", cfg.TableName),
		slog.Int("batch_size", cfg.BatchSize),
		slog.Duration("interval", cfg.Interval),
	)

	err = service.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("demo producer stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("demo producer stopped")
}
