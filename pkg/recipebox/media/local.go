package media

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore keeps blobs as files under a single directory.
// Safe for concurrent use: writes land in a temp file that is renamed into
// place, so readers never observe a partial blob.
type LocalStore struct {
	dir       string
	urlPrefix string
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("media directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &LocalStore{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

// Dir returns the directory blobs are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Path returns the filesystem path for name.
func (s *LocalStore) Path(name string) string {
	return filepath.Join(s.dir, filepath.FromSlash(name))
}

func (s *LocalStore) checkName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	clean := path.Clean("/" + name)
	if clean != "/"+name || strings.Contains(name, "\\") {
		return fmt.Errorf("invalid blob name %q", name)
	}
	return nil
}

// Save writes data under name.
func (s *LocalStore) Save(_ context.Context, name string, data []byte, _ string) error {
	if err := s.checkName(name); err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("blob data cannot be empty")
	}

	dst := s.Path(name)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close blob: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set blob permissions: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("failed to move blob into place: %w", err)
	}
	return nil
}

// Delete removes name.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	if err := s.checkName(name); err != nil {
		return err
	}
	if err := os.Remove(s.Path(name)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// URL returns the public path the server serves name under.
func (s *LocalStore) URL(name string) string {
	if name == "" {
		return ""
	}
	return s.urlPrefix + "/" + name
}
