package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/autoactions/download-action/config"
	"github.com/autoactions/download-action/observability"
	"github.com/autoactions/download-action/storage/types"
)

// Client implements the ObjectStorage interface for AWS S3 and
// S3-compatible backends.
type Client struct {
	s3Client *awss3.Client
	bucket   string
	logger   observability.Logger
	metrics  observability.Metrics
}

// NewClient creates a new S3 storage client bound to the configured bucket.
func NewClient(cfg *config.StorageConfig, logger observability.Logger, metrics observability.Metrics) (*Client, error) {
	if cfg.S3.Bucket == "" {
		return nil, fmt.Errorf("invalid S3 configuration: bucket is required")
	}

	awsCfg, err := buildAWSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	s3Client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{
		s3Client: s3Client,
		bucket:   cfg.S3.Bucket,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Put stores an object in S3
func (c *Client) Put(ctx context.Context, key string, reader io.Reader, metadata types.ObjectMetadata) error {
	start := time.Now()
	defer func() {
		c.metrics.RecordDuration("storage_put", time.Since(start).Seconds())
	}()

	input := &awss3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   reader,
	}
	if metadata.ContentType != "" {
		input.ContentType = aws.String(metadata.ContentType)
	}
	if metadata.ContentEncoding != "" {
		input.ContentEncoding = aws.String(metadata.ContentEncoding)
	}
	if metadata.ContentLength > 0 {
		input.ContentLength = aws.Int64(metadata.ContentLength)
	}
	if len(metadata.UserMetadata) > 0 {
		input.Metadata = metadata.UserMetadata
	}

	if _, err := c.s3Client.PutObject(ctx, input); err != nil {
		c.metrics.RecordError("storage_put", "put_failed")
		c.logger.Error(ctx, "failed to put object", err, observability.Fields{
			"bucket": c.bucket,
			"key":    key,
		})
		return fmt.Errorf("failed to put object %q: %w", key, err)
	}

	c.logger.Debug(ctx, "object stored", observability.Fields{
		"bucket": c.bucket,
		"key":    key,
		"size":   metadata.ContentLength,
	})

	return nil
}

// Get retrieves an object from S3
func (c *Client) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	input := &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}

	result, err := c.s3Client.GetObject(ctx, input)
	if err != nil {
		if isNotFoundError(err) {
			return nil, types.ErrObjectNotFound
		}
		c.metrics.RecordError("storage_get", "get_failed")
		c.logger.Error(ctx, "failed to get object", err, observability.Fields{
			"bucket": c.bucket,
			"key":    key,
		})
		return nil, fmt.Errorf("failed to get object %q: %w", key, err)
	}

	return result.Body, nil
}

// Exists checks if an object exists in S3
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	input := &awss3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}

	if _, err := c.s3Client.HeadObject(ctx, input); err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence for %q: %w", key, err)
	}

	return true, nil
}

// List returns the objects under the given prefix
func (c *Client) List(ctx context.Context, prefix string) ([]types.ObjectInfo, error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordDuration("storage_list", time.Since(start).Seconds())
	}()

	input := &awss3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var objects []types.ObjectInfo
	paginator := awss3.NewListObjectsV2Paginator(c.s3Client, input)

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			c.metrics.RecordError("storage_list", "list_failed")
			c.logger.Error(ctx, "failed to list objects", err, observability.Fields{
				"bucket": c.bucket,
				"prefix": prefix,
			})
			return nil, fmt.Errorf("failed to list objects under %q: %w", prefix, err)
		}

		for _, obj := range page.Contents {
			objects = append(objects, types.ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
				ETag:         aws.ToString(obj.ETag),
			})
		}
	}

	c.logger.Debug(ctx, "objects listed", observability.Fields{
		"bucket": c.bucket,
		"prefix": prefix,
		"count":  len(objects),
	})

	return objects, nil
}

// Delete removes an object from S3
func (c *Client) Delete(ctx context.Context, key string) error {
	input := &awss3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}

	if _, err := c.s3Client.DeleteObject(ctx, input); err != nil {
		c.metrics.RecordError("storage_delete", "delete_failed")
		c.logger.Error(ctx, "failed to delete object", err, observability.Fields{
			"bucket": c.bucket,
			"key":    key,
		})
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}

	return nil
}

// CheckReachable verifies the bucket exists and accepts requests.
func (c *Client) CheckReachable(ctx context.Context) error {
	_, err := c.s3Client.HeadBucket(ctx, &awss3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %q is not reachable: %w", c.bucket, err)
	}
	return nil
}

// buildAWSConfig builds the AWS configuration from the storage config
func buildAWSConfig(cfg *config.StorageConfig) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error

	if cfg.S3.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.S3.Region))
	}

	// Use static credentials if provided
	if cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.S3.AccessKeyID,
				cfg.S3.SecretAccessKey,
				"",
			),
		))
	}

	if cfg.MaxRetries > 0 {
		optFns = append(optFns, awsconfig.WithRetryMaxAttempts(cfg.MaxRetries))
	}

	optFns = append(optFns, awsconfig.WithHTTPClient(&http.Client{
		Timeout: cfg.Timeout,
	}))

	return awsconfig.LoadDefaultConfig(context.Background(), optFns...)
}

// isNotFoundError checks if an error is a not found error
func isNotFoundError(err error) bool {
	var nsk *s3types.NoSuchKey
	var nse *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nse)
}
