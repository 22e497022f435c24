package media

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore keeps blobs as objects in a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore connects to bucket. With an empty credentialsFile the
// application default credentials are used.
func NewGCSStore(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("GCS bucket cannot be empty")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Save uploads data as the object name.
func (s *GCSStore) Save(ctx context.Context, name string, data []byte, contentType string) error {
	if name == "" {
		return ErrEmptyName
	}
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000, immutable"

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload %s to GCS: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer for %s: %w", name, err)
	}
	return nil
}

// Delete removes the object name.
func (s *GCSStore) Delete(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	err := s.client.Bucket(s.bucket).Object(name).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete %s from GCS: %w", name, err)
	}
	return nil
}

// URL returns the public object URL.
func (s *GCSStore) URL(name string) string {
	if name == "" {
		return ""
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, name)
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
