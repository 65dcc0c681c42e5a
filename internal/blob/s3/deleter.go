package s3blob

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/brandlab/exchange/internal/domain"
)

// Deleter implements domain.BlobDeleter using an S3-compatible backend.
type Deleter struct {
	client *s3.Client
	bucket string
}

// NewDeleter creates a new Deleter for the given client's configured bucket.
func NewDeleter(c *Client) *Deleter {
	return &Deleter{
		client: c.S3(),
		bucket: c.Bucket(),
	}
}

// Delete removes the object at the given path. Idempotent: deleting a missing
// object is not an error (S3 DeleteObject succeeds either way).
func (d *Deleter) Delete(ctx context.Context, path string) error {
	_, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("s3blob: delete %s: %w", path, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.BlobDeleter = (*Deleter)(nil)
