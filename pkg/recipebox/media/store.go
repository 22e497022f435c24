// Package media stores recipe images as opaque blobs.
package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikepea/recipebox/pkg/recipebox/config"
)

// ErrEmptyName is returned when a blob name is blank.
var ErrEmptyName = errors.New("blob name cannot be empty")

// BlobStore saves, removes and addresses blobs by name.
// Deleting a missing blob is not an error.
type BlobStore interface {
	Save(ctx context.Context, name string, data []byte, contentType string) error
	Delete(ctx context.Context, name string) error
	URL(name string) string
}

// New builds the blob store selected by cfg.Backend.
func New(ctx context.Context, cfg config.MediaConfig) (BlobStore, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(cfg.Dir, cfg.URLPrefix)
	case "gcs":
		return NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentials)
	default:
		return nil, fmt.Errorf("unsupported media backend %q", cfg.Backend)
	}
}
