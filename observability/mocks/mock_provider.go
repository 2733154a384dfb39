package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/autoactions/download-action/observability/types"
)

// MockProvider is a mock implementation of the Provider interface
type MockProvider struct {
	mock.Mock
}

// Logger mocks the Logger method
func (m *MockProvider) Logger(component string) types.Logger {
	args := m.Called(component)
	return args.Get(0).(types.Logger)
}

// Metrics mocks the Metrics method
func (m *MockProvider) Metrics(component string) types.Metrics {
	args := m.Called(component)
	return args.Get(0).(types.Metrics)
}

// Close mocks the Close method
func (m *MockProvider) Close() error {
	args := m.Called()
	return args.Error(0)
}

// NopProvider returns no-op loggers and metrics for every component.
type NopProvider struct{}

func (NopProvider) Logger(string) types.Logger   { return NopLogger{} }
func (NopProvider) Metrics(string) types.Metrics { return NopMetrics{} }
func (NopProvider) Close() error                 { return nil }
