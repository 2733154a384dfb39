package handler

import (
	"context"
)

// Worker defines the interface that each worker must implement.
// Workers hold the business logic and stay platform-agnostic: the same
// worker can run behind an HTTP server, an AWS Lambda consuming SQS
// events, or a RabbitMQ consumer.
type Worker interface {
	// Name returns the worker name, used for logging, metrics, and routing.
	Name() string

	// Process handles the actual work. The worker unmarshals the request
	// payload, processes it, and returns an appropriate response.
	Process(ctx context.Context, request Request) (Response, error)

	// Health checks if the worker is ready to process requests. It should
	// verify that dependencies (storage, executor endpoint, etc.) are
	// reachable.
	Health(ctx context.Context) error
}
