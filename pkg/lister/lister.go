// Package lister produces the key set of one bucket endpoint.
//
// Every backend returns either a complete KeySet or an error, never a
// partial or empty stand-in for a failed listing.
package lister

import (
	"context"
	"fmt"
	"time"

	"github.com/yuya-takeyama/strict-s3-diff/pkg/bucket"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/logger"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/runner"
)

const DefaultTimeout = 300 * time.Second

type Lister interface {
	List(ctx context.Context, endpoint bucket.Endpoint) (bucket.KeySet, error)
}

// Error wraps a listing failure for one bucket
type Error struct {
	Bucket string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to list bucket %s: %v", e.Bucket, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// RunnerFactory builds the runner bound to an endpoint's connection flags
type RunnerFactory func(endpoint bucket.Endpoint) runner.Runner

// CommandLister lists a bucket through the external listing tool
type CommandLister struct {
	newRunner RunnerFactory
	timeout   time.Duration
	logger    logger.Logger
}

func NewCommandLister(newRunner RunnerFactory, timeout time.Duration, log logger.Logger) *CommandLister {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.NullLogger{}
	}
	return &CommandLister{
		newRunner: newRunner,
		timeout:   timeout,
		logger:    log,
	}
}

// ListArgs returns the tool arguments that list every key of the bucket
func ListArgs(bucketName string) []string {
	return []string{"ls", "--show-fullpath", fmt.Sprintf("s3://%s/*", bucketName)}
}

func (l *CommandLister) List(ctx context.Context, endpoint bucket.Endpoint) (bucket.KeySet, error) {
	log := l.logger.With("bucket", endpoint.BucketName)
	log.Info("listing bucket contents")

	start := time.Now()
	output, err := l.newRunner(endpoint).Run(ctx, ListArgs(endpoint.BucketName), l.timeout)
	if err != nil {
		return nil, &Error{Bucket: endpoint.BucketName, Err: err}
	}

	keys := bucket.ParseListing(output, endpoint.BucketName)
	log.Info("listing complete", "objects", keys.Len(), "duration_ms", logger.Duration(time.Since(start)))
	return keys, nil
}
