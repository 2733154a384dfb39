package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/autoactions/download-action/config"
	"github.com/autoactions/download-action/observability"
)

// SQSDispatcher delivers dispatch events through an SQS queue consumed by
// the transfer worker's Lambda. Used when the executor runs in-account
// instead of behind an HTTP trigger endpoint.
type SQSDispatcher struct {
	client   *sqs.Client
	queueURL string
	logger   observability.Logger
}

// NewSQSDispatcher creates a queue-backed dispatcher.
func NewSQSDispatcher(cfg *config.ExecutorConfig, logger observability.Logger) (*SQSDispatcher, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	return &SQSDispatcher{
		client:   sqs.NewFromConfig(awsCfg),
		queueURL: cfg.QueueURL,
		logger:   logger,
	}, nil
}

// Dispatch sends the event as a single queue message.
func (d *SQSDispatcher) Dispatch(ctx context.Context, event DispatchEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode dispatch event: %w", err)
	}

	_, err = d.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(d.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue dispatch event: %w", err)
	}

	d.logger.Info(ctx, "dispatch event enqueued", observability.Fields{
		"event_type": event.EventType,
		"queue_url":  d.queueURL,
	})

	return nil
}
