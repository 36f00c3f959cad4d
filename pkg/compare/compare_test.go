package compare

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuya-takeyama/strict-s3-diff/pkg/bucket"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/diff"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/lister"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/report"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/runner"
)

// fakeLister answers List from a per-bucket table
type fakeLister struct {
	mu     sync.Mutex
	keys   map[string]bucket.KeySet
	errs   map[string]error
	block  map[string]bool
	listed []string
}

func (f *fakeLister) List(ctx context.Context, endpoint bucket.Endpoint) (bucket.KeySet, error) {
	f.mu.Lock()
	f.listed = append(f.listed, endpoint.BucketName)
	f.mu.Unlock()

	if f.block[endpoint.BucketName] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err, ok := f.errs[endpoint.BucketName]; ok {
		return nil, err
	}
	return f.keys[endpoint.BucketName], nil
}

// fakeWriter records the last write
type fakeWriter struct {
	err    error
	calls  int
	result diff.Result
	path   string
}

func (f *fakeWriter) Write(ctx context.Context, result diff.Result, path string) error {
	f.calls++
	f.result = result
	f.path = path
	return f.err
}

var (
	primaryEP = bucket.Endpoint{BucketName: "primary"}
	mirrorEP  = bucket.Endpoint{BucketName: "mirror", EndpointURL: "https://backup.example.com"}
)

func TestRunSuccess(t *testing.T) {
	l := &fakeLister{keys: map[string]bucket.KeySet{
		"primary": bucket.NewKeySet("a/1.txt", "a/2.txt", "b/3.txt"),
		"mirror":  bucket.NewKeySet("a/1.txt", "b/4.txt"),
	}}
	w := &fakeWriter{}

	result, stats, err := New(l, w, nil).Run(context.Background(), primaryEP, mirrorEP, "out.json")
	require.NoError(t, err)

	want := diff.Result{
		OnlyInPrimary: []string{"a/2.txt", "b/3.txt"},
		OnlyInMirror:  []string{"b/4.txt"},
	}
	assert.Equal(t, want, result)
	assert.Equal(t, want, w.result)
	assert.Equal(t, "out.json", w.path)
	assert.Equal(t, 1, w.calls)
	assert.Equal(t, 3, stats.PrimaryObjects)
	assert.Equal(t, 2, stats.MirrorObjects)
	assert.ElementsMatch(t, []string{"primary", "mirror"}, l.listed)
}

func TestRunEmptyBucketsAreValid(t *testing.T) {
	l := &fakeLister{keys: map[string]bucket.KeySet{
		"primary": bucket.NewKeySet(),
		"mirror":  bucket.NewKeySet(),
	}}
	w := &fakeWriter{}

	result, _, err := New(l, w, nil).Run(context.Background(), primaryEP, mirrorEP, "out.json")
	require.NoError(t, err)
	assert.True(t, result.Empty())
	assert.Equal(t, 1, w.calls)
}

func TestRunListingFailure(t *testing.T) {
	tests := []struct {
		name     string
		failing  string
		err      error
		wantRole bucket.Role
	}{
		{
			name:     "primary timed out",
			failing:  "primary",
			err:      &lister.Error{Bucket: "primary", Err: &runner.TimedOutError{Timeout: time.Second}},
			wantRole: bucket.RolePrimary,
		},
		{
			name:     "mirror process failed",
			failing:  "mirror",
			err:      &lister.Error{Bucket: "mirror", Err: &runner.ProcessFailedError{ExitStatus: 1, Stderr: "AccessDenied"}},
			wantRole: bucket.RoleMirror,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &fakeLister{
				keys: map[string]bucket.KeySet{
					"primary": bucket.NewKeySet("a"),
					"mirror":  bucket.NewKeySet("a"),
				},
				errs: map[string]error{tt.failing: tt.err},
			}
			w := &fakeWriter{}

			result, _, err := New(l, w, nil).Run(context.Background(), primaryEP, mirrorEP, "out.json")

			var listErr *ListingError
			require.True(t, errors.As(err, &listErr))
			assert.Equal(t, tt.wantRole, listErr.Role)
			assert.Equal(t, tt.failing, listErr.Bucket)
			assert.ErrorIs(t, err, tt.err)

			assert.Equal(t, diff.Result{}, result)
			assert.Equal(t, 0, w.calls, "no report may be written after a listing failure")
		})
	}
}

func TestRunFailureCancelsSibling(t *testing.T) {
	l := &fakeLister{
		errs:  map[string]error{"primary": errors.New("boom")},
		block: map[string]bool{"mirror": true},
	}

	done := make(chan error, 1)
	go func() {
		_, _, err := New(l, &fakeWriter{}, nil).Run(context.Background(), primaryEP, mirrorEP, "out.json")
		done <- err
	}()

	select {
	case err := <-done:
		var listErr *ListingError
		require.True(t, errors.As(err, &listErr))
		assert.Equal(t, bucket.RolePrimary, listErr.Role)
	case <-time.After(5 * time.Second):
		t.Fatal("blocked listing was not cancelled")
	}
}

func TestRunReportFailureKeepsResult(t *testing.T) {
	l := &fakeLister{keys: map[string]bucket.KeySet{
		"primary": bucket.NewKeySet("x"),
		"mirror":  bucket.NewKeySet(),
	}}
	writeErr := &report.WriteError{Path: "/nope/out.json", Err: os.ErrNotExist}
	w := &fakeWriter{err: writeErr}

	result, _, err := New(l, w, nil).Run(context.Background(), primaryEP, mirrorEP, "/nope/out.json")

	var reportErr *ReportError
	require.True(t, errors.As(err, &reportErr))
	assert.Equal(t, "/nope/out.json", reportErr.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var listErr *ListingError
	assert.False(t, errors.As(err, &listErr))

	assert.Equal(t, []string{"x"}, result.OnlyInPrimary)
}

func TestRunWritesReportFile(t *testing.T) {
	l := &fakeLister{keys: map[string]bucket.KeySet{
		"primary": bucket.NewKeySet("a/1.txt", "a/2.txt"),
		"mirror":  bucket.NewKeySet("a/1.txt", "c/5.txt"),
	}}
	w := report.NewWriter(report.Options{PrimaryBucket: "primary", MirrorBucket: "mirror"}, nil)
	path := filepath.Join(t.TempDir(), "bucket_differences.json")

	_, _, err := New(l, w, nil).Run(context.Background(), primaryEP, mirrorEP, path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"only_in_primary_primary": ["a/2.txt"],
		"only_in_mirror_mirror": ["c/5.txt"]
	}`, string(data))
}
