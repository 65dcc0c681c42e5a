package s3blob

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Writer implements domain.BlobWriter using an S3-compatible backend. Uploads
// go through the SDK upload manager, which transparently switches to
// multipart for payloads above its part size.
type Writer struct {
	uploader *manager.Uploader
	bucket   string
}

// NewWriter creates a new Writer that uploads objects to the given client's
// configured bucket.
func NewWriter(c *Client) *Writer {
	return &Writer{
		uploader: manager.NewUploader(c.S3()),
		bucket:   c.Bucket(),
	}
}

// Put uploads data under the given key with the given content type. Exactly
// one stored object per call; uploading to an existing key overwrites it.
func (w *Writer) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	_, err := w.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(path),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put object %s: %w", path, err)
	}
	return nil
}
