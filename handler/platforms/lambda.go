package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/autoactions/download-action/handler"
)

// LambdaAdapter adapts worker handlers to the AWS Lambda runtime. The job
// executor delivers dispatch events through SQS, one transfer per record.
type LambdaAdapter struct {
	handler *handler.Handler
	config  *LambdaConfig
}

// LambdaConfig contains Lambda-specific configuration
type LambdaConfig struct {
	// ProcessingTimeout for individual messages
	ProcessingTimeout time.Duration
	// EnablePartialBatchFailure allows reporting individual message failures
	EnablePartialBatchFailure bool
}

// DefaultLambdaConfig returns default Lambda configuration
func DefaultLambdaConfig() *LambdaConfig {
	return &LambdaConfig{
		ProcessingTimeout:         14 * time.Minute,
		EnablePartialBatchFailure: true,
	}
}

// NewLambdaAdapter creates a new Lambda adapter
func NewLambdaAdapter(h *handler.Handler, config *LambdaConfig) *LambdaAdapter {
	if config == nil {
		config = DefaultLambdaConfig()
	}
	return &LambdaAdapter{
		handler: h,
		config:  config,
	}
}

// Start begins the Lambda runtime handler
func (a *LambdaAdapter) Start() {
	lambda.Start(a.HandleEvent)
}

// HandleEvent is the main Lambda handler that routes different event types
func (a *LambdaAdapter) HandleEvent(ctx context.Context, event json.RawMessage) (interface{}, error) {
	var sqsEvent events.SQSEvent
	if err := json.Unmarshal(event, &sqsEvent); err == nil && len(sqsEvent.Records) > 0 {
		return a.handleSQSEvent(ctx, sqsEvent)
	}

	return nil, fmt.Errorf("unsupported event type")
}

// handleSQSEvent processes SQS events with support for partial batch failures
func (a *LambdaAdapter) handleSQSEvent(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{
		BatchItemFailures: []events.SQSBatchItemFailure{},
	}

	for _, record := range event.Records {
		if err := a.processSQSMessage(ctx, record); err != nil {
			if a.config.EnablePartialBatchFailure {
				response.BatchItemFailures = append(response.BatchItemFailures,
					events.SQSBatchItemFailure{
						ItemIdentifier: record.MessageId,
					})
			} else {
				return response, err
			}
		}
	}

	return response, nil
}

// processSQSMessage processes a single SQS message
func (a *LambdaAdapter) processSQSMessage(ctx context.Context, record events.SQSMessage) error {
	request := a.buildRequestFromSQS(record)

	if a.config.ProcessingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.ProcessingTimeout)
		defer cancel()
	}

	response, err := a.handler.Handle(ctx, request)
	if err != nil {
		return fmt.Errorf("handler error: %w", err)
	}

	if !response.Success {
		if response.Error != nil && response.Error.Retryable {
			// Return an error so SQS redelivers the message
			return fmt.Errorf("retryable error: %s", response.Error.Message)
		}
		// Non-retryable failures are recorded by the handler's logging;
		// returning nil keeps the message from being redelivered.
	}

	return nil
}

// buildRequestFromSQS converts an SQS message to a handler.Request
func (a *LambdaAdapter) buildRequestFromSQS(record events.SQSMessage) handler.Request {
	metadata := make(map[string]string)
	for key, attr := range record.MessageAttributes {
		if attr.StringValue != nil {
			metadata[key] = *attr.StringValue
		}
	}

	metadata["sqs_message_id"] = record.MessageId
	metadata["sqs_event_source"] = record.EventSource

	// The body is a DispatchEvent; lift its event_type so the worker can
	// route on it, and pass the client payload through.
	requestType := "download_file"
	payload := json.RawMessage(record.Body)

	var dispatch struct {
		EventType     string          `json:"event_type"`
		ClientPayload json.RawMessage `json:"client_payload"`
	}
	if err := json.Unmarshal([]byte(record.Body), &dispatch); err == nil && dispatch.EventType != "" {
		requestType = dispatch.EventType
		if len(dispatch.ClientPayload) > 0 {
			payload = dispatch.ClientPayload
		}
	} else if !json.Valid(payload) {
		wrappedBody, _ := json.Marshal(record.Body)
		payload = wrappedBody
	}

	requestID := record.MessageId
	if id, ok := metadata["request_id"]; ok {
		requestID = id
	}

	return handler.Request{
		ID:        requestID,
		Source:    "sqs",
		Type:      requestType,
		Payload:   payload,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}
}
