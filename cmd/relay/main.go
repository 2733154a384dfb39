// The relay binary serves the public trigger endpoint. A GET whose path,
// percent-decoded, is a source URL produces exactly one dispatch event to
// the job executor.
package main

import (
	"context"
	"log"

	"github.com/autoactions/download-action/config"
	"github.com/autoactions/download-action/handler"
	"github.com/autoactions/download-action/observability"
	"github.com/autoactions/download-action/relay"
)

func main() {
	cfg := loadConfiguration()
	obs := initializeObservability(cfg)
	defer obs.Close()

	logger := obs.Logger("main")

	dispatcher, err := relay.NewDispatcher(&cfg.Executor, obs.Logger("relay.dispatcher"))
	if err != nil {
		log.Fatalf("failed to create dispatcher: %v", err)
	}

	worker := relay.NewWorker(dispatcher, &cfg.Executor, obs)
	h := handler.NewFactory(worker, obs).
		WithHandlerConfig(cfg.Handler).
		Create()

	server := relay.NewServer(h, obs)

	logger.Info(context.Background(), "starting relay", observability.Fields{
		"service":     cfg.ServiceName,
		"version":     cfg.Version,
		"environment": cfg.Environment,
		"dispatcher":  cfg.Executor.Dispatcher,
		"addr":        cfg.HTTP.Addr,
	})

	if err := server.Serve(cfg.HTTP.Addr); err != nil {
		log.Fatalf("relay server stopped: %v", err)
	}
}

func loadConfiguration() *config.Config {
	provider := config.GetProvider()
	provider.MustLoad()

	cfg := provider.MustGet()
	if err := cfg.Executor.Validate(); err != nil {
		log.Fatalf("invalid executor configuration: %v", err)
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
