// The transfer binary runs the orchestrator worker. It consumes dispatch
// events from the configured platform (HTTP direct trigger, Lambda SQS
// events, or a RabbitMQ queue) and executes one transfer job per event.
package main

import (
	"context"
	"log"

	"github.com/autoactions/download-action/config"
	"github.com/autoactions/download-action/download"
	"github.com/autoactions/download-action/handler"
	"github.com/autoactions/download-action/handler/platforms"
	"github.com/autoactions/download-action/observability"
	"github.com/autoactions/download-action/storage"
	storagetypes "github.com/autoactions/download-action/storage/types"
	"github.com/autoactions/download-action/transfer"
	"github.com/autoactions/download-action/upload"
)

func main() {
	cfg := loadConfiguration()
	obs := initializeObservability(cfg)
	defer obs.Close()

	logger := obs.Logger("main")

	objectStorage := initializeStorage(cfg, obs)

	downloader := download.NewEngine(cfg.Download, obs)
	uploader := upload.NewEngine(objectStorage, cfg.Upload, obs)

	orchestrator := transfer.NewOrchestrator(
		downloader,
		uploader,
		objectStorage,
		cfg.Transfer,
		cfg.Download.Dir,
		obs,
	)

	worker := transfer.NewWorker(orchestrator, obs)
	h := handler.NewFactory(worker, obs).
		WithHandlerConfig(cfg.Handler).
		Create()

	platform := handler.DetectPlatform()
	logger.Info(context.Background(), "starting transfer worker", observability.Fields{
		"service":     cfg.ServiceName,
		"version":     cfg.Version,
		"environment": cfg.Environment,
		"platform":    platform,
	})

	if err := startPlatform(platform, h, cfg); err != nil {
		log.Fatalf("transfer worker stopped: %v", err)
	}
}

func loadConfiguration() *config.Config {
	provider := config.GetProvider()
	provider.MustLoad()

	cfg := provider.MustGet()
	if err := cfg.Transfer.Validate(&cfg.Storage); err != nil {
		log.Fatalf("invalid transfer configuration: %v", err)
	}
	return cfg
}

func initializeObservability(cfg *config.Config) observability.Provider {
	return observability.NewProvider(&observability.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		LogLevel:    cfg.LogLevel,
	})
}

func initializeStorage(cfg *config.Config, obs observability.Provider) storagetypes.ObjectStorage {
	provider := storage.GetProvider()
	provider.MustInitialize(cfg, obs.Logger("storage.s3"), obs.Metrics("storage.s3"))
	return provider.MustGetStorage()
}

func startPlatform(platform string, h *handler.Handler, cfg *config.Config) error {
	switch platform {
	case "lambda":
		platforms.NewLambdaAdapter(h, platforms.DefaultLambdaConfig()).Start()
		return nil
	case "rabbitmq":
		return platforms.NewRabbitMQAdapter(h, &cfg.RabbitMQ).Start()
	default:
		return platforms.NewHTTPAdapter(h).Serve(cfg.HTTP.Addr)
	}
}
