// Package s3blob stores listing images on S3-compatible object storage via
// AWS SDK v2. MinIO is the local development target; any provider speaking
// the S3 API (R2, iDrive e2, AWS itself) works through the same client.
package s3blob

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ClientConfig holds connection parameters for the object store.
type ClientConfig struct {
	// Endpoint is the provider URL, e.g. "http://localhost:9000" for MinIO.
	// Empty means standard AWS S3.
	Endpoint string

	Region string

	// Bucket holds every object this deployment writes.
	Bucket string

	AccessKey string
	SecretKey string

	// UseSSL selects the scheme when Endpoint is given without one.
	UseSSL bool

	// ForcePathStyle puts the bucket in the URL path instead of the
	// subdomain. MinIO and most non-AWS providers need it.
	ForcePathStyle bool
}

// Client carries the SDK client plus the bucket and endpoint the image
// store's URL scheme is derived from.
type Client struct {
	s3       *s3.Client
	bucket   string
	endpoint string
}

// New builds the S3 client with static credentials and the provider
// overrides from cfg. It does not touch the network; Health does.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3blob: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3blob: region is required")
	}

	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("s3blob: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	endpoint := ""
	if cfg.Endpoint != "" {
		endpoint = normaliseEndpoint(cfg.Endpoint, cfg.UseSSL)
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &Client{
		s3:       s3.NewFromConfig(awsCfg, s3Opts...),
		bucket:   cfg.Bucket,
		endpoint: endpoint,
	}, nil
}

// Health verifies the bucket exists and the credentials can reach it.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3blob: head bucket %s: %w", c.bucket, err)
	}
	return nil
}

// Close is a no-op; the SDK's HTTP client needs no teardown.
func (c *Client) Close() error {
	return nil
}

// S3 returns the raw SDK client for the sibling reader and writer types.
func (c *Client) S3() *s3.Client {
	return c.s3
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// Endpoint returns the normalised endpoint, empty for standard AWS S3.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// normaliseEndpoint prepends a scheme when the configured endpoint lacks one.
func normaliseEndpoint(endpoint string, useSSL bool) string {
	parsed, err := url.Parse(endpoint)
	if err == nil && parsed.Scheme != "" {
		return endpoint
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return scheme + "://" + endpoint
}
