package sweep

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandlab/exchange/internal/domain"
)

const testBase = "https://cdn.example.com/bucket/"

type fakeStore struct {
	urls []string
	err  error
}

func (f *fakeStore) ImageURLs(ctx context.Context) ([]string, error) {
	return f.urls, f.err
}

type fakeReader struct {
	objects []domain.BlobInfo
	err     error
}

func (f *fakeReader) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	panic("not used")
}

func (f *fakeReader) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.BlobInfo
	for _, obj := range f.objects {
		if strings.HasPrefix(obj.Path, prefix) {
			out = append(out, obj)
		}
	}
	return out, nil
}

func (f *fakeReader) Exists(ctx context.Context, path string) (bool, error) {
	for _, obj := range f.objects {
		if obj.Path == path {
			return true, nil
		}
	}
	return false, nil
}

type fakeDeleter struct {
	deleted []string
	failOn  string
}

func (f *fakeDeleter) Delete(ctx context.Context, path string) error {
	if path == f.failOn {
		return errors.New("backend unavailable")
	}
	f.deleted = append(f.deleted, path)
	return nil
}

type fakeKeys struct{}

func (fakeKeys) Key(rawURL string) (string, bool) {
	key, ok := strings.CutPrefix(rawURL, testBase)
	if !ok || !strings.HasPrefix(key, "exchange/") {
		return "", false
	}
	return key, true
}

func testSweeper(store Store, reader domain.BlobReader, deleter domain.BlobDeleter) *Sweeper {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, reader, deleter, fakeKeys{}, "exchange/", time.Hour, time.Hour, logger)
}

func obj(key string, age time.Duration) domain.BlobInfo {
	return domain.BlobInfo{Path: key, Size: 1024, LastModified: time.Now().Add(-age)}
}

func TestSweepRemovesOrphans(t *testing.T) {
	store := &fakeStore{urls: []string{testBase + "exchange/u1/kept.jpg"}}
	reader := &fakeReader{objects: []domain.BlobInfo{
		obj("exchange/u1/kept.jpg", 48*time.Hour),
		obj("exchange/u1/orphan.jpg", 48*time.Hour),
	}}
	deleter := &fakeDeleter{}

	removed, err := testSweeper(store, reader, deleter).SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"exchange/u1/orphan.jpg"}, deleter.deleted)
}

func TestSweepSkipsYoungObjects(t *testing.T) {
	store := &fakeStore{}
	reader := &fakeReader{objects: []domain.BlobInfo{
		obj("exchange/u1/fresh.jpg", time.Minute),
	}}
	deleter := &fakeDeleter{}

	removed, err := testSweeper(store, reader, deleter).SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Empty(t, deleter.deleted)
}

func TestSweepIgnoresExternalImageURLs(t *testing.T) {
	// A listing pointing at an externally hosted image contributes nothing to
	// the referenced set and never shields a bucket object.
	store := &fakeStore{urls: []string{"https://elsewhere.example.com/pic.png"}}
	reader := &fakeReader{objects: []domain.BlobInfo{
		obj("exchange/u2/orphan.jpg", 48*time.Hour),
	}}
	deleter := &fakeDeleter{}

	removed, err := testSweeper(store, reader, deleter).SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestSweepContinuesPastDeleteFailure(t *testing.T) {
	store := &fakeStore{}
	reader := &fakeReader{objects: []domain.BlobInfo{
		obj("exchange/u1/a.jpg", 48*time.Hour),
		obj("exchange/u1/b.jpg", 48*time.Hour),
	}}
	deleter := &fakeDeleter{failOn: "exchange/u1/a.jpg"}

	removed, err := testSweeper(store, reader, deleter).SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"exchange/u1/b.jpg"}, deleter.deleted)
}

func TestSweepSurfacesStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	_, err := testSweeper(store, &fakeReader{}, &fakeDeleter{}).SweepOnce(context.Background())
	require.Error(t, err)
}

func TestSweepSurfacesListError(t *testing.T) {
	reader := &fakeReader{err: errors.New("connection refused")}
	_, err := testSweeper(&fakeStore{}, reader, &fakeDeleter{}).SweepOnce(context.Background())
	require.Error(t, err)
}
