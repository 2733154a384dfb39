package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/autoactions/download-action/observability/types"
)

// MockLogger is a mock implementation of the Logger interface
type MockLogger struct {
	mock.Mock
}

// Info mocks the Info method
func (m *MockLogger) Info(ctx context.Context, msg string, fields types.Fields) {
	m.Called(ctx, msg, fields)
}

// Error mocks the Error method
func (m *MockLogger) Error(ctx context.Context, msg string, err error, fields types.Fields) {
	m.Called(ctx, msg, err, fields)
}

// Warn mocks the Warn method
func (m *MockLogger) Warn(ctx context.Context, msg string, fields types.Fields) {
	m.Called(ctx, msg, fields)
}

// Debug mocks the Debug method
func (m *MockLogger) Debug(ctx context.Context, msg string, fields types.Fields) {
	m.Called(ctx, msg, fields)
}

// WithFields mocks the WithFields method
func (m *MockLogger) WithFields(fields types.Fields) types.Logger {
	args := m.Called(fields)
	if args.Get(0) == nil {
		return m
	}
	return args.Get(0).(types.Logger)
}

// NopLogger is a Logger that discards everything. Useful where a test
// doesn't care about log output and setting mock expectations would be
// noise.
type NopLogger struct{}

func (NopLogger) Info(context.Context, string, types.Fields)         {}
func (NopLogger) Error(context.Context, string, error, types.Fields) {}
func (NopLogger) Warn(context.Context, string, types.Fields)         {}
func (NopLogger) Debug(context.Context, string, types.Fields)        {}
func (n NopLogger) WithFields(types.Fields) types.Logger             { return n }
