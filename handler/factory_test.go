package handler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoactions/download-action/config"
	"github.com/autoactions/download-action/observability/mocks"
)

func TestNewFactory(t *testing.T) {
	worker := &TestWorker{name: "test"}
	provider := mocks.NopProvider{}

	factory := NewFactory(worker, provider)

	assert.NotNil(t, factory)
	assert.Equal(t, worker, factory.worker)
	assert.Equal(t, config.DefaultHandlerConfig(), factory.handlerCfg)
}

func TestFactory_WithHandlerConfig(t *testing.T) {
	worker := &TestWorker{name: "test"}

	custom := config.HandlerConfig{
		Timeout:       60 * time.Second,
		EnableMetrics: false,
		Platform:      "lambda",
	}

	factory := NewFactory(worker, mocks.NopProvider{}).WithHandlerConfig(custom)

	assert.Equal(t, custom, factory.handlerCfg)
}

func TestFactory_Create(t *testing.T) {
	worker := &TestWorker{name: "test"}

	handler := NewFactory(worker, mocks.NopProvider{}).Create()

	require.NotNil(t, handler)
	assert.Equal(t, worker, handler.worker)
	assert.NotEmpty(t, handler.middlewares)
	assert.NotEmpty(t, handler.config.Platform)
}

func TestFactory_CreateProcessesRequest(t *testing.T) {
	worker := &TestWorker{name: "test"}

	handler := NewFactory(worker, mocks.NopProvider{}).Create()

	req, err := NewRequest("test", map[string]string{"key": "value"})
	require.NoError(t, err)

	resp, err := handler.Handle(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, req.ID, resp.ID)
}

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected string
	}{
		{
			name:     "Lambda function name",
			envVars:  map[string]string{"AWS_LAMBDA_FUNCTION_NAME": "my-function"},
			expected: "lambda",
		},
		{
			name:     "Lambda runtime API",
			envVars:  map[string]string{"AWS_LAMBDA_RUNTIME_API": "127.0.0.1:9001"},
			expected: "lambda",
		},
		{
			name:     "RabbitMQ opt-in",
			envVars:  map[string]string{"HANDLER_PLATFORM": "rabbitmq"},
			expected: "rabbitmq",
		},
		{
			name:     "Default",
			envVars:  map[string]string{},
			expected: "http",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			platform := DetectPlatform()
			assert.Equal(t, tt.expected, platform)
		})
	}
}
