// Package storage manages the lifecycle of the object storage client.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/autoactions/download-action/config"
	"github.com/autoactions/download-action/observability"
	"github.com/autoactions/download-action/storage/types"
)

// Provider manages storage lifecycle and ensures singleton behavior
type Provider struct {
	storage     types.ObjectStorage
	config      *config.Config
	logger      observability.Logger
	metrics     observability.Metrics
	mu          sync.RWMutex
	initialized bool
}

var (
	instance *Provider
	once     sync.Once
)

// GetProvider returns the singleton storage provider instance.
// Only one storage client exists throughout the application lifecycle.
func GetProvider() *Provider {
	once.Do(func() {
		instance = &Provider{}
	})
	return instance
}

// Initialize initializes the storage provider with configuration and
// dependencies. Call once at application startup.
func (p *Provider) Initialize(cfg *config.Config, logger observability.Logger, metrics observability.Metrics) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	storage, err := p.createStorage(cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	if err := p.testConnection(storage); err != nil {
		return fmt.Errorf("failed to verify storage connection: %w", err)
	}

	p.storage = storage
	p.config = cfg
	p.logger = logger
	p.metrics = metrics
	p.initialized = true

	return nil
}

// createStorage is the internal factory for concrete implementations.
func (p *Provider) createStorage(cfg *config.Config, logger observability.Logger, metrics observability.Metrics) (types.ObjectStorage, error) {
	switch cfg.Storage.Provider {
	case "s3":
		return createS3Storage(cfg, logger, metrics)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Storage.Provider)
	}
}

// testConnection verifies the destination answers requests.
func (p *Provider) testConnection(storage types.ObjectStorage) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return storage.CheckReachable(ctx)
}

// MustInitialize initializes the storage provider and panics on error.
func (p *Provider) MustInitialize(cfg *config.Config, logger observability.Logger, metrics observability.Metrics) {
	if err := p.Initialize(cfg, logger, metrics); err != nil {
		panic(fmt.Sprintf("failed to initialize storage: %v", err))
	}
}

// GetStorage returns the storage instance.
func (p *Provider) GetStorage() (types.ObjectStorage, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.initialized || p.storage == nil {
		return nil, fmt.Errorf("storage not initialized; call Initialize() first")
	}

	return p.storage, nil
}

// MustGetStorage returns the storage or panics if not initialized.
func (p *Provider) MustGetStorage() types.ObjectStorage {
	storage, err := p.GetStorage()
	if err != nil {
		panic(fmt.Sprintf("failed to get storage: %v", err))
	}
	return storage
}

// IsInitialized returns whether storage has been initialized
func (p *Provider) IsInitialized() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.initialized
}

// Close cleanly shuts down the storage provider
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil
	}

	// the S3 client has no explicit cleanup, reset state only
	p.storage = nil
	p.initialized = false

	return nil
}

// Reset resets the provider (useful for testing)
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.storage = nil
	p.config = nil
	p.logger = nil
	p.metrics = nil
	p.initialized = false
}
