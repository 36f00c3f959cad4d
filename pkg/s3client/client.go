package s3client

import (
	"context"
)

type ListObjectsRequest struct {
	Bucket string
	Prefix string
}

// Client lists the keys of a bucket. The callback receives one page of
// keys at a time.
type Client interface {
	ListObjects(ctx context.Context, req *ListObjectsRequest, fn func(keys []string) error) error
}
