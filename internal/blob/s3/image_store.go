package s3blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/brandlab/exchange/internal/domain"
)

// ImageKeyPrefix scopes all listing images in the bucket.
const ImageKeyPrefix = "exchange"

// ImageStore implements domain.ImageStore on top of the blob writer/deleter.
// Objects are keyed exchange/{ownerID}/{uuid}.jpg; every upload gets a fresh
// key, so a replaced image is a distinct object and the old one must be
// removed by the caller via RemoveListingImage.
type ImageStore struct {
	writer  domain.BlobWriter
	deleter domain.BlobDeleter

	// publicBase is the externally resolvable root for stored objects,
	// without a trailing slash, e.g. "https://cdn.example.com/brandlab" or
	// "http://localhost:9000/brandlab-exchange".
	publicBase string
}

// NewImageStore creates an ImageStore. publicBaseURL may be empty, in which
// case URLs are derived from the client's endpoint and bucket (path-style).
func NewImageStore(c *Client, publicBaseURL string) *ImageStore {
	base := strings.TrimRight(publicBaseURL, "/")
	if base == "" {
		base = strings.TrimRight(c.Endpoint(), "/") + "/" + c.Bucket()
	}
	return &ImageStore{
		writer:     NewWriter(c),
		deleter:    NewDeleter(c),
		publicBase: base,
	}
}

// StoreListingImage uploads a normalized JPEG payload under a fresh
// listing-scoped key and returns its stable retrieval URL. Upload failures
// wrap domain.ErrUploadFailed; there is no retry.
func (is *ImageStore) StoreListingImage(ctx context.Context, ownerID string, jpeg []byte) (string, error) {
	if ownerID == "" {
		return "", fmt.Errorf("s3blob: store listing image: %w", domain.ErrNotAuthenticated)
	}

	key := fmt.Sprintf("%s/%s/%s.jpg", ImageKeyPrefix, ownerID, uuid.NewString())

	if err := is.writer.Put(ctx, key, bytes.NewReader(jpeg), "image/jpeg"); err != nil {
		return "", fmt.Errorf("s3blob: store listing image: %w", errors.Join(domain.ErrUploadFailed, err))
	}

	return is.publicBase + "/" + key, nil
}

// RemoveListingImage deletes the object behind a URL previously returned by
// StoreListingImage. URLs from outside this store's key space are ignored, so
// externally hosted images survive listing cleanup untouched.
func (is *ImageStore) RemoveListingImage(ctx context.Context, rawURL string) error {
	key, ok := is.Key(rawURL)
	if !ok {
		return nil
	}
	if err := is.deleter.Delete(ctx, key); err != nil {
		return fmt.Errorf("s3blob: remove listing image: %w", err)
	}
	return nil
}

// Key recovers the object key from a public URL, reporting false when the URL
// does not point into this store.
func (is *ImageStore) Key(rawURL string) (string, bool) {
	if rawURL == "" {
		return "", false
	}
	if strings.HasPrefix(rawURL, is.publicBase+"/") {
		key := strings.TrimPrefix(rawURL, is.publicBase+"/")
		if strings.HasPrefix(key, ImageKeyPrefix+"/") {
			return key, true
		}
		return "", false
	}
	// Tolerate base URL changes: match on the key shape within the path.
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	if idx := strings.Index(u.Path, "/"+ImageKeyPrefix+"/"); idx >= 0 {
		return u.Path[idx+1:], true
	}
	return "", false
}

// Compile-time interface check.
var _ domain.ImageStore = (*ImageStore)(nil)
