package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// BlobDeleter removes objects from storage. Deleting a missing object is not
// an error.
type BlobDeleter interface {
	Delete(ctx context.Context, path string) error
}

// ImageStore uploads a normalized listing image and resolves its public URL.
// One stored object per call; a new key is generated every time, so callers
// replacing an image are responsible for removing the previous object.
type ImageStore interface {
	StoreListingImage(ctx context.Context, ownerID string, jpeg []byte) (url string, err error)
	RemoveListingImage(ctx context.Context, url string) error
}
