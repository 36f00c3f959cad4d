package s3client

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/time/rate"

	"github.com/yuya-takeyama/strict-s3-diff/pkg/bucket"
)

// region used when a custom endpoint is set and nothing else resolves one
const fallbackRegion = "us-east-1"

type AWSClient struct {
	client  s3.ListObjectsV2APIClient
	limiter *rate.Limiter
}

// NewAWSClient wraps an existing ListObjectsV2 API. requestsPerSecond <= 0
// disables page rate limiting.
func NewAWSClient(api s3.ListObjectsV2APIClient, requestsPerSecond float64) *AWSClient {
	c := &AWSClient{client: api}
	if requestsPerSecond > 0 {
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return c
}

// NewAWSClientForEndpoint loads the shared AWS config for the endpoint's
// credentials file and profile and points the client at its URL.
func NewAWSClientForEndpoint(ctx context.Context, endpoint bucket.Endpoint, requestsPerSecond float64) (*AWSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, LoadOptions(endpoint)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Region == "" && endpoint.EndpointURL != "" {
		cfg.Region = fallbackRegion
	}

	api := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint.EndpointURL != "" {
			o.BaseEndpoint = aws.String(endpoint.EndpointURL)
			o.UsePathStyle = true
		}
	})

	return NewAWSClient(api, requestsPerSecond), nil
}

// LoadOptions maps an endpoint onto shared config load options
func LoadOptions(endpoint bucket.Endpoint) []func(*config.LoadOptions) error {
	var opts []func(*config.LoadOptions) error
	if endpoint.CredentialsFile != "" {
		opts = append(opts, config.WithSharedCredentialsFiles([]string{endpoint.CredentialsFile}))
	}
	if endpoint.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(endpoint.Profile))
	}
	if endpoint.Region != "" {
		opts = append(opts, config.WithRegion(endpoint.Region))
	}
	return opts
}

func (c *AWSClient) ListObjects(ctx context.Context, req *ListObjectsRequest, fn func(keys []string) error) error {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(req.Bucket),
	}
	if req.Prefix != "" {
		input.Prefix = aws.String(req.Prefix)
	}
	paginator := s3.NewListObjectsV2Paginator(c.client, input)

	for paginator.HasMorePages() {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}

		keys := make([]string, 0, len(page.Contents))
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			keys = append(keys, *obj.Key)
		}

		if err := fn(keys); err != nil {
			return err
		}
	}

	return nil
}
