package lister

import (
	"context"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/yuya-takeyama/strict-s3-diff/pkg/bucket"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/logger"
)

// Filtered drops keys matching any of the exclude patterns from the
// wrapped lister's result.
type Filtered struct {
	next     Lister
	excludes []string
	logger   logger.Logger
}

// NewFiltered validates the patterns up front so a typo fails the run
// before any listing starts.
func NewFiltered(next Lister, excludes []string, log logger.Logger) (*Filtered, error) {
	for _, pattern := range excludes {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	if log == nil {
		log = logger.NullLogger{}
	}
	return &Filtered{next: next, excludes: excludes, logger: log}, nil
}

func (f *Filtered) List(ctx context.Context, endpoint bucket.Endpoint) (bucket.KeySet, error) {
	keys, err := f.next.List(ctx, endpoint)
	if err != nil || len(f.excludes) == 0 {
		return keys, err
	}

	kept := bucket.NewKeySet()
	for key := range keys {
		excluded, err := IsExcluded(key, f.excludes)
		if err != nil {
			return nil, &Error{Bucket: endpoint.BucketName, Err: err}
		}
		if !excluded {
			kept.Add(key)
		}
	}

	if dropped := keys.Len() - kept.Len(); dropped > 0 {
		f.logger.Info("excluded keys", "bucket", endpoint.BucketName, "excluded", dropped)
	}
	return kept, nil
}

func IsExcluded(key string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, key)
		if err != nil {
			return false, err
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}
