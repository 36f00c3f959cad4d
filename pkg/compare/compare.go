// Package compare runs the list, diff and report pipeline for one pair of
// buckets.
package compare

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yuya-takeyama/strict-s3-diff/pkg/bucket"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/diff"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/lister"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/logger"
)

// ListingError reports that one side of the comparison could not be listed
type ListingError struct {
	Role   bucket.Role
	Bucket string
	Err    error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("%s bucket %s could not be listed: %v", e.Role, e.Bucket, e.Err)
}

func (e *ListingError) Unwrap() error {
	return e.Err
}

// ReportError reports that the comparison succeeded but the report could
// not be persisted
type ReportError struct {
	Path string
	Err  error
}

func (e *ReportError) Error() string {
	return fmt.Sprintf("comparison succeeded but report %s was not saved: %v", e.Path, e.Err)
}

func (e *ReportError) Unwrap() error {
	return e.Err
}

// ReportWriter persists a diff result
type ReportWriter interface {
	Write(ctx context.Context, result diff.Result, path string) error
}

// Stats describes a finished run
type Stats struct {
	PrimaryObjects int
	MirrorObjects  int
	ListDuration   time.Duration
	Duration       time.Duration
}

type Comparator struct {
	lister lister.Lister
	writer ReportWriter
	logger logger.Logger
}

func New(l lister.Lister, w ReportWriter, log logger.Logger) *Comparator {
	if log == nil {
		log = logger.NullLogger{}
	}
	return &Comparator{
		lister: l,
		writer: w,
		logger: log,
	}
}

// Run lists both endpoints concurrently, diffs them and writes the report
// to output. A *ReportError is returned together with the valid result.
func (c *Comparator) Run(ctx context.Context, primary, mirror bucket.Endpoint, output string) (diff.Result, Stats, error) {
	start := time.Now()
	c.logger.Info("starting comparison",
		"primary", primary.String(),
		"mirror", mirror.String(),
		"output", output,
	)

	var primaryKeys, mirrorKeys bucket.KeySet

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		keys, err := c.lister.List(gctx, primary)
		if err != nil {
			return &ListingError{Role: bucket.RolePrimary, Bucket: primary.BucketName, Err: err}
		}
		primaryKeys = keys
		return nil
	})
	g.Go(func() error {
		keys, err := c.lister.List(gctx, mirror)
		if err != nil {
			return &ListingError{Role: bucket.RoleMirror, Bucket: mirror.BucketName, Err: err}
		}
		mirrorKeys = keys
		return nil
	})

	if err := g.Wait(); err != nil {
		c.logger.Error("listing failed, aborting comparison", err)
		return diff.Result{}, Stats{}, err
	}

	stats := Stats{
		PrimaryObjects: primaryKeys.Len(),
		MirrorObjects:  mirrorKeys.Len(),
		ListDuration:   time.Since(start),
	}
	c.logger.Info("listing finished",
		"primary_objects", stats.PrimaryObjects,
		"mirror_objects", stats.MirrorObjects,
		"duration_ms", logger.Duration(stats.ListDuration),
	)

	result := diff.Compare(primaryKeys, mirrorKeys)
	c.logger.Info("differences computed",
		"only_in_primary", len(result.OnlyInPrimary),
		"only_in_mirror", len(result.OnlyInMirror),
	)

	if err := c.writer.Write(ctx, result, output); err != nil {
		stats.Duration = time.Since(start)
		return result, stats, &ReportError{Path: output, Err: err}
	}

	stats.Duration = time.Since(start)
	c.logger.Info("comparison complete", "duration_ms", logger.Duration(stats.Duration))
	return result, stats, nil
}
