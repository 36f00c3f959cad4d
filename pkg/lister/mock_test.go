package lister

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yuya-takeyama/strict-s3-diff/pkg/bucket"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/s3client"
)

// mockRunner is a mock implementation of runner.Runner for testing
type mockRunner struct {
	runFunc func(ctx context.Context, args []string, timeout time.Duration) (string, error)
}

func (m *mockRunner) Run(ctx context.Context, args []string, timeout time.Duration) (string, error) {
	if m.runFunc != nil {
		return m.runFunc(ctx, args, timeout)
	}
	return "", fmt.Errorf("Run not implemented")
}

// mockClient is a mock implementation of s3client.Client for testing
type mockClient struct {
	listObjectsFunc func(ctx context.Context, req *s3client.ListObjectsRequest, fn func([]string) error) error
}

func (m *mockClient) ListObjects(ctx context.Context, req *s3client.ListObjectsRequest, fn func([]string) error) error {
	if m.listObjectsFunc != nil {
		return m.listObjectsFunc(ctx, req, fn)
	}
	return fmt.Errorf("ListObjects not implemented")
}

// mockLister is a mock implementation of Lister that counts calls
type mockLister struct {
	mu       sync.Mutex
	calls    int
	listFunc func(call int, endpoint bucket.Endpoint) (bucket.KeySet, error)
}

func (m *mockLister) List(ctx context.Context, endpoint bucket.Endpoint) (bucket.KeySet, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()
	if m.listFunc != nil {
		return m.listFunc(call, endpoint)
	}
	return nil, fmt.Errorf("List not implemented")
}
