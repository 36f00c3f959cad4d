package lister

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/aws/smithy-go"

	"github.com/yuya-takeyama/strict-s3-diff/pkg/bucket"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/logger"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/runner"
)

const (
	defaultBaseDelay = 500 * time.Millisecond
	defaultMaxDelay  = 30 * time.Second
)

// permanentErrorCodes fail the same way on every attempt
var permanentErrorCodes = []string{
	"NoSuchBucket",
	"AccessDenied",
	"AllAccessDisabled",
	"InvalidAccessKeyId",
	"SignatureDoesNotMatch",
	"InvalidBucketName",
	"PermanentRedirect",
}

// Retrying re-runs a failed listing up to maxRetries more times with
// exponential backoff and jitter.
type Retrying struct {
	next       Lister
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     logger.Logger
}

func NewRetrying(next Lister, maxRetries int, log logger.Logger) *Retrying {
	if log == nil {
		log = logger.NullLogger{}
	}
	return &Retrying{
		next:       next,
		maxRetries: maxRetries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
		logger:     log,
	}
}

func (r *Retrying) List(ctx context.Context, endpoint bucket.Endpoint) (bucket.KeySet, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		keys, err := r.next.List(ctx, endpoint)
		if err == nil {
			return keys, nil
		}

		if !IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}

		lastErr = err
		if attempt < r.maxRetries {
			delay := r.calculateDelay(attempt)
			r.logger.Warn("listing failed, retrying",
				"bucket", endpoint.BucketName,
				"attempt", attempt+1,
				"delay_ms", logger.Duration(delay),
				"error", err.Error(),
			)
			select {
			case <-ctx.Done():
				return nil, err
			case <-time.After(delay):
			}
		}
	}
	return nil, lastErr
}

// IsRetryable reports whether a listing error may succeed on a later attempt
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var timedOut *runner.TimedOutError
	if errors.As(err, &timedOut) {
		return true
	}

	var failed *runner.ProcessFailedError
	if errors.As(err, &failed) {
		// a tool that never started will not start on retry either
		return failed.ExitStatus > 0 && !isPermanent(failed.Stderr)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "SlowDown", "ServiceUnavailable", "RequestTimeout", "RequestTimeoutException", "InternalError":
			return true
		}
		if httpErr, ok := apiErr.(interface{ HTTPStatusCode() int }); ok {
			code := httpErr.HTTPStatusCode()
			return code >= 500 && code < 600
		}
		return false
	}

	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF)
}

func isPermanent(stderr string) bool {
	for _, code := range permanentErrorCodes {
		if strings.Contains(stderr, code) {
			return true
		}
	}
	return false
}

func (r *Retrying) calculateDelay(attempt int) time.Duration {
	base := float64(r.baseDelay)
	delay := base * math.Pow(2.0, float64(attempt))

	// ±25% jitter
	jitter := delay * 0.25 * (2*rand.Float64() - 1)
	delay += jitter

	if delay > float64(r.maxDelay) {
		delay = float64(r.maxDelay)
	}

	return time.Duration(delay)
}
