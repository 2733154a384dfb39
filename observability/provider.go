// Package observability provides a centralized provider for the logging and
// metrics components used throughout the download-action services.
package observability

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/autoactions/download-action/observability/logger"
	"github.com/autoactions/download-action/observability/metrics"
	"github.com/autoactions/download-action/observability/types"
)

// Logger is a type alias for the Logger interface from the types package.
type Logger = types.Logger

// Metrics is a type alias for the Metrics interface from the types package.
type Metrics = types.Metrics

// Fields is a type alias for structured logging fields.
type Fields = types.Fields

// Config is a type alias for the observability configuration.
type Config = types.Config

// Provider is a type alias for the Provider interface from the types package.
type Provider = types.Provider

// DefaultProvider implements the Provider interface. It manages Logger and
// Metrics instances per component, creating them lazily on first access and
// returning the same instance on subsequent calls.
type DefaultProvider struct {
	config    *Config
	registry  prometheus.Registerer
	loggers   map[string]Logger
	metricses map[string]Metrics
	mu        sync.RWMutex
}

// NewProvider creates a new observability provider with the given
// configuration. If LogOutput is not specified, it defaults to os.Stdout.
// Metrics are registered with the default Prometheus registry.
func NewProvider(config *Config) Provider {
	return NewProviderWithRegistry(config, prometheus.DefaultRegisterer)
}

// NewProviderWithRegistry creates a provider that registers metrics with a
// specific Prometheus registerer. Tests use this with a private registry to
// avoid duplicate registration panics.
func NewProviderWithRegistry(config *Config, reg prometheus.Registerer) Provider {
	if config.LogOutput == nil {
		config.LogOutput = os.Stdout
	}

	return &DefaultProvider{
		config:    config,
		registry:  reg,
		loggers:   make(map[string]Logger),
		metricses: make(map[string]Metrics),
	}
}

// Logger returns the Logger instance for the specified component. The
// returned logger includes the provider's additional fields plus a
// "component" field.
func (p *DefaultProvider) Logger(component string) Logger {
	p.mu.RLock()
	if l, exists := p.loggers[component]; exists {
		p.mu.RUnlock()
		return l
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check
	if l, exists := p.loggers[component]; exists {
		return l
	}

	fields := make(Fields)
	for k, v := range p.config.AdditionalFields {
		fields[k] = v
	}
	fields["component"] = component

	serviceName := fmt.Sprintf("%s.%s", p.config.ServiceName, component)

	l := logger.New(
		serviceName,
		p.config.Environment,
		p.config.LogLevel,
		p.config.LogOutput,
		fields,
	)

	p.loggers[component] = l
	return l
}

// Metrics returns the Metrics instance for the specified component.
// Component names are sanitized into valid Prometheus metric prefixes.
func (p *DefaultProvider) Metrics(component string) Metrics {
	p.mu.RLock()
	if m, exists := p.metricses[component]; exists {
		p.mu.RUnlock()
		return m
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check
	if m, exists := p.metricses[component]; exists {
		return m
	}

	prefix := sanitizeMetricName(fmt.Sprintf("%s_%s", p.config.ServiceName, component))
	m := metrics.New(prefix, p.registry)

	p.metricses[component] = m
	return m
}

// Close shuts down the provider. Loggers and metrics hold no external
// resources, so this only clears the instance caches.
func (p *DefaultProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.loggers = make(map[string]Logger)
	p.metricses = make(map[string]Metrics)
	return nil
}

// sanitizeMetricName replaces characters that are invalid in Prometheus
// metric names (dots, dashes) with underscores.
func sanitizeMetricName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == ':':
			return r
		default:
			return '_'
		}
	}, name)
}
