package storage

import (
	"github.com/autoactions/download-action/config"
	"github.com/autoactions/download-action/observability"
	"github.com/autoactions/download-action/storage/adapters/s3"
	"github.com/autoactions/download-action/storage/types"
)

// createS3Storage creates an S3 storage implementation.
// Only called by the provider's internal factory.
func createS3Storage(cfg *config.Config, logger observability.Logger, metrics observability.Metrics) (types.ObjectStorage, error) {
	return s3.NewClient(&cfg.Storage, logger, metrics)
}
