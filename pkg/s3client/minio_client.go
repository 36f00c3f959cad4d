package s3client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yuya-takeyama/strict-s3-diff/pkg/bucket"
)

const (
	defaultMinioHost = "s3.amazonaws.com"
	pageSize         = 1000
)

type MinioClient struct {
	client *minio.Client
}

// NewMinioClientForEndpoint connects to the endpoint URL (AWS S3 when
// unset) using the profile of an AWS style shared credentials file.
func NewMinioClientForEndpoint(endpoint bucket.Endpoint) (*MinioClient, error) {
	host, secure, err := MinioHost(endpoint.EndpointURL)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewFileAWSCredentials(endpoint.CredentialsFile, endpoint.Profile),
		Secure:       secure,
		Region:       endpoint.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioClient{client: client}, nil
}

// MinioHost splits an endpoint URL into the host and TLS flag minio-go expects
func MinioHost(endpointURL string) (host string, secure bool, err error) {
	if endpointURL == "" {
		return defaultMinioHost, true, nil
	}

	u, err := url.Parse(endpointURL)
	if err != nil {
		return "", false, fmt.Errorf("invalid endpoint URL %q: %w", endpointURL, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid endpoint URL %q: missing host", endpointURL)
	}

	switch u.Scheme {
	case "https":
		return u.Host, true, nil
	case "http":
		return u.Host, false, nil
	default:
		return "", false, fmt.Errorf("invalid endpoint URL %q: unsupported scheme %q", endpointURL, u.Scheme)
	}
}

func (c *MinioClient) ListObjects(ctx context.Context, req *ListObjectsRequest, fn func(keys []string) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := c.client.ListObjects(ctx, req.Bucket, minio.ListObjectsOptions{
		Prefix:    req.Prefix,
		Recursive: true,
	})

	page := make([]string, 0, pageSize)
	for obj := range objects {
		if obj.Err != nil {
			return fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		page = append(page, obj.Key)
		if len(page) == pageSize {
			if err := fn(page); err != nil {
				return err
			}
			page = make([]string, 0, pageSize)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(page) > 0 {
		return fn(page)
	}
	return nil
}
