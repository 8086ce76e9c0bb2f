package gcpclient

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// StorageAdapter implements service.StorageClient over GCS, adapted from the
// teacher's internal/gcpclient/storage.go with a Delete method added — the
// document pipeline (§4.6) removes blobs on Document delete and the
// artifact pipeline's regeneration path removes the prior Summary blobs
// before re-uploading, neither of which the teacher's own adapter needed.
type StorageAdapter struct {
	client *storage.Client
}

func NewStorageAdapter(ctx context.Context) (*StorageAdapter, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcpclient.NewStorageAdapter: %w", err)
	}
	return &StorageAdapter{client: client}, nil
}

// Upload writes data to a GCS object under key.
func (a *StorageAdapter) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	w := a.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("gcpclient.Upload write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcpclient.Upload close: %w", err)
	}
	return nil
}

// SignedURL mints a time-bounded GET URL for key.
func (a *StorageAdapter) SignedURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	url, err := a.client.Bucket(bucket).SignedURL(key, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(expiry),
	})
	if err != nil {
		return "", fmt.Errorf("gcpclient.SignedURL: %w", err)
	}
	return url, nil
}

func (a *StorageAdapter) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	r, err := a.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcpclient.Download: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (a *StorageAdapter) Delete(ctx context.Context, bucket, key string) error {
	if err := a.client.Bucket(bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("gcpclient.Delete: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (a *StorageAdapter) Close() error {
	return a.client.Close()
}
