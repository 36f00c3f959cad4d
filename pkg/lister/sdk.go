package lister

import (
	"context"
	"errors"
	"time"

	"github.com/yuya-takeyama/strict-s3-diff/pkg/bucket"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/logger"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/runner"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/s3client"
)

// ClientFactory builds a native listing client for an endpoint
type ClientFactory func(ctx context.Context, endpoint bucket.Endpoint) (s3client.Client, error)

// AWSClientFactory returns a ClientFactory backed by the AWS SDK
func AWSClientFactory(requestsPerSecond float64) ClientFactory {
	return func(ctx context.Context, endpoint bucket.Endpoint) (s3client.Client, error) {
		return s3client.NewAWSClientForEndpoint(ctx, endpoint, requestsPerSecond)
	}
}

// MinioClientFactory returns a ClientFactory backed by minio-go
func MinioClientFactory() ClientFactory {
	return func(_ context.Context, endpoint bucket.Endpoint) (s3client.Client, error) {
		return s3client.NewMinioClientForEndpoint(endpoint)
	}
}

// SDKLister lists a bucket through a native S3 client instead of a
// subprocess. Timeouts are reported as *runner.TimedOutError so callers
// classify both backends the same way.
type SDKLister struct {
	newClient ClientFactory
	timeout   time.Duration
	logger    logger.Logger
}

func NewSDKLister(newClient ClientFactory, timeout time.Duration, log logger.Logger) *SDKLister {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.NullLogger{}
	}
	return &SDKLister{
		newClient: newClient,
		timeout:   timeout,
		logger:    log,
	}
}

func (l *SDKLister) List(ctx context.Context, endpoint bucket.Endpoint) (bucket.KeySet, error) {
	log := l.logger.With("bucket", endpoint.BucketName)
	log.Info("listing bucket contents via SDK")

	listCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	client, err := l.newClient(listCtx, endpoint)
	if err != nil {
		return nil, &Error{Bucket: endpoint.BucketName, Err: err}
	}

	start := time.Now()
	keys := bucket.NewKeySet()
	err = client.ListObjects(listCtx, &s3client.ListObjectsRequest{Bucket: endpoint.BucketName}, func(page []string) error {
		for _, k := range page {
			keys.Add(k)
		}
		return nil
	})
	if err != nil {
		return nil, &Error{Bucket: endpoint.BucketName, Err: classifyDeadline(ctx, listCtx, err, l.timeout)}
	}

	log.Info("listing complete", "objects", keys.Len(), "duration_ms", logger.Duration(time.Since(start)))
	return keys, nil
}

// classifyDeadline turns an expired per-listing deadline into a TimedOutError
func classifyDeadline(parent, listCtx context.Context, err error, timeout time.Duration) error {
	if parent.Err() == nil && errors.Is(listCtx.Err(), context.DeadlineExceeded) {
		return &runner.TimedOutError{Timeout: timeout}
	}
	return err
}
